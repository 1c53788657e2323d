// Copyright 2019 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package message

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/Mission-KI/pruefplattform/pkg/pb"
)

func TestProtoRoundTrip(t *testing.T) {
	require := require.New(t)

	msg := ExecutionMessage{
		Func:   "fourtytwo_wrapper",
		Input:  []ArtifactNode{NewNode("input0", "/data/in.json")},
		Output: []ArtifactNode{{Name: "output0", Location: Location{URI: "s3://bucket/out.json"}, PayloadID: "sha256:abc"}},
		Meta:   Meta{ExecutionName: "run-1"},
	}

	wire, err := proto.Marshal(ToProto(msg))
	require.NoError(err)

	decoded := &pb.ExecutionMessage{}
	require.NoError(proto.Unmarshal(wire, decoded))
	require.Equal(msg, FromProto(decoded))
}

func TestFromProtoAbsentFields(t *testing.T) {
	require := require.New(t)

	got := FromProto(&pb.ExecutionMessage{
		Func:  "f",
		Input: []*pb.ArtifactNodeMessage{{Name: "a"}},
	})

	require.Equal("f", got.Func)
	require.Equal([]ArtifactNode{{Name: "a"}}, got.Input)
	require.Empty(got.Output)
	require.Equal(Meta{}, got.Meta)

	wire := ToProto(got)
	require.NotNil(wire.GetMeta())
	require.NotNil(wire.GetInput()[0].GetLocation())
	require.Equal("", wire.GetInput()[0].GetLocation().GetUri())
}

func TestParseURIList(t *testing.T) {
	testCases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"/a.json", []string{"/a.json"}},
		{"/a.json,/b.npy", []string{"/a.json", "/b.npy"}},
		{" /a.json , ,s3://b/c.arrow ", []string{"/a.json", "s3://b/c.arrow"}},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			require.Equal(t, tc.want, ParseURIList(tc.in))
		})
	}
}

func TestNodesFromURIs(t *testing.T) {
	nodes := NodesFromURIs("input", []string{"/a.json", "/b.json"})
	require.Equal(t, []ArtifactNode{NewNode("input0", "/a.json"), NewNode("input1", "/b.json")}, nodes)
}
