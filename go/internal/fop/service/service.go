// Package service exposes the fields of play to operator consoles and referee devices
// as a Connect service. Messages are google.protobuf.Struct values so that consoles
// need no generated code.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/mcdev12/fieldofplay/go/internal/competition"
	"github.com/mcdev12/fieldofplay/go/internal/fop/gateway"
	"github.com/mcdev12/fieldofplay/go/internal/fop/orchestrator"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName       = "fop.v1.FieldOfPlayService"
	SubmitProcedure   = "/" + ServiceName + "/Submit"
	GetStateProcedure = "/" + ServiceName + "/GetState"
)

// FieldsOfPlay is implemented by *orchestrator.Registry.
type FieldsOfPlay interface {
	Do(ctx context.Context, platform string, cmd orchestrator.Command) error
	Snapshot(platform string) (*orchestrator.Snapshot, error)
}

type Service struct {
	fops FieldsOfPlay
}

func NewService(fops FieldsOfPlay) *Service {
	return &Service{fops: fops}
}

// NewHandler mounts both procedures under the service path.
func NewHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(SubmitProcedure, connect.NewUnaryHandler(SubmitProcedure, svc.Submit, opts...))
	mux.Handle(GetStateProcedure, connect.NewUnaryHandler(GetStateProcedure, svc.GetState, opts...))
	return "/" + ServiceName + "/", mux
}

// Submit runs {"platform": "A", "command": "RefereeDecision", "referee": 1, "good": true}
// and answers with the platform and its new state.
func (s *Service) Submit(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	args := req.Msg.AsMap()
	platform, _ := args["platform"].(string)
	if platform == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("platform is required"))
	}
	name, _ := args["command"].(string)
	delete(args, "platform")
	delete(args, "command")

	cmd, err := orchestrator.DecodeCommand(name, args)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	if err := s.fops.Do(ctx, platform, cmd); err != nil {
		log.Warn().
			Err(err).
			Str("platform", platform).
			Str("command", cmd.Name()).
			Msg("command rejected")
		return nil, toConnectError(err)
	}

	snap, err := s.fops.Snapshot(platform)
	if err != nil {
		return nil, toConnectError(err)
	}
	out, err := structpb.NewStruct(map[string]any{
		"platform": platform,
		"state":    string(snap.State),
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(out), nil
}

// GetState answers {"platform": "A"} with the platform state.
func (s *Service) GetState(_ context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	platform := req.Msg.GetFields()["platform"].GetStringValue()
	if platform == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("platform is required"))
	}
	snap, err := s.fops.Snapshot(platform)
	if err != nil {
		return nil, toConnectError(err)
	}
	out, err := toStruct(gateway.NewStateView(snap))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(out), nil
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("convert state: %w", err)
	}
	return out, nil
}

func toConnectError(err error) *connect.Error {
	switch {
	case errors.Is(err, orchestrator.ErrUnknownPlatform), errors.Is(err, competition.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, orchestrator.ErrBadCommand), errors.Is(err, competition.ErrRuleViolation):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, orchestrator.ErrInvalidCommand):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, orchestrator.ErrStopped):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}
