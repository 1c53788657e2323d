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

package harness

import (
	"context"

	"github.com/Mission-KI/pruefplattform/internal/dispatch"
	"github.com/Mission-KI/pruefplattform/internal/message"
	"github.com/Mission-KI/pruefplattform/internal/toolerror"
	"github.com/Mission-KI/pruefplattform/pkg/pb"
)

// moduleService implements pb.ModuleServer by dispatching every message to
// the tool's functions.
type moduleService struct {
	pb.UnimplementedModuleServer
	dispatcher *dispatch.Dispatcher
}

// Exec runs the function named in req and returns the message with its
// outputs stored.
func (s *moduleService) Exec(ctx context.Context, req *pb.ExecutionMessage) (*pb.ExecutionMessage, error) {
	resp, err := s.dispatcher.Dispatch(ctx, message.FromProto(req))
	if err != nil {
		return nil, toolerror.ToStatus(err)
	}
	return message.ToProto(resp), nil
}
