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

// Package message holds the in-process form of the execution messages
// exchanged between an orchestrator and a tool.
package message

import (
	"strconv"
	"strings"

	"github.com/Mission-KI/pruefplattform/pkg/pb"
)

// Location addresses an artifact. An empty scheme or "file" denotes a local
// path, any other scheme selects a registered storage backend.
type Location struct {
	URI string
}

// ArtifactNode is one named input or output of a function call.
type ArtifactNode struct {
	Name     string
	Location Location
	// PayloadID is "sha256:<hex>" of the stored payload when the codec that
	// stored it supports hashing. It is never verified on load.
	PayloadID string
}

// Meta carries call metadata.
type Meta struct {
	ExecutionName string
}

// ExecutionMessage describes one function invocation.
type ExecutionMessage struct {
	Func   string
	Input  []ArtifactNode
	Output []ArtifactNode
	Meta   Meta
}

// NewNode returns an artifact node for uri.
func NewNode(name, uri string) ArtifactNode {
	return ArtifactNode{Name: name, Location: Location{URI: uri}}
}

// FromProto converts a wire message. Absent fields become empty strings.
func FromProto(m *pb.ExecutionMessage) ExecutionMessage {
	return ExecutionMessage{
		Func:   m.GetFunc(),
		Input:  nodesFromProto(m.GetInput()),
		Output: nodesFromProto(m.GetOutput()),
		Meta:   Meta{ExecutionName: m.GetMeta().GetExecutionName()},
	}
}

// ToProto converts a message to its wire form. Every field is populated,
// empty strings included, so a round trip through the wire loses the
// distinction between absent and empty.
func ToProto(m ExecutionMessage) *pb.ExecutionMessage {
	return &pb.ExecutionMessage{
		Func:   m.Func,
		Input:  nodesToProto(m.Input),
		Output: nodesToProto(m.Output),
		Meta:   &pb.ExecutionMeta{ExecutionName: m.Meta.ExecutionName},
	}
}

func nodesFromProto(nodes []*pb.ArtifactNodeMessage) []ArtifactNode {
	result := make([]ArtifactNode, 0, len(nodes))
	for _, n := range nodes {
		result = append(result, ArtifactNode{
			Name:      n.GetName(),
			Location:  Location{URI: n.GetLocation().GetUri()},
			PayloadID: n.GetPayloadId(),
		})
	}
	return result
}

func nodesToProto(nodes []ArtifactNode) []*pb.ArtifactNodeMessage {
	result := make([]*pb.ArtifactNodeMessage, 0, len(nodes))
	for _, n := range nodes {
		result = append(result, &pb.ArtifactNodeMessage{
			Name:      n.Name,
			Location:  &pb.ArtifactNodeLocation{Uri: n.Location.URI},
			PayloadId: n.PayloadID,
		})
	}
	return result
}

// ParseURIList splits a comma separated URI list, dropping blank entries.
func ParseURIList(list string) []string {
	var uris []string
	for _, uri := range strings.Split(list, ",") {
		if uri = strings.TrimSpace(uri); uri != "" {
			uris = append(uris, uri)
		}
	}
	return uris
}

// NodesFromURIs names each URI with prefix followed by its position, the way
// the orchestrator labels environment supplied artifacts.
func NodesFromURIs(prefix string, uris []string) []ArtifactNode {
	nodes := make([]ArtifactNode, 0, len(uris))
	for i, uri := range uris {
		nodes = append(nodes, NewNode(prefix+strconv.Itoa(i), uri))
	}
	return nodes
}
