package grpc_control

import (
	"context"
	"time"

	"market-simulator/src/helpers"
	"market-simulator/src/logger"
	"market-simulator/src/market"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ControlService drives open order books from outside the HTTP surface.
type ControlService struct {
	Sessions *market.SessionManager
	Logger   *logger.Logger
}

var _ ControlServer = (*ControlService)(nil)

// NewControlService creates a new instance of ControlService
func NewControlService(sessions *market.SessionManager, log *logger.Logger) *ControlService {
	if log == nil {
		log = logger.NewLogger(sessions.Config, "ControlService")
	}
	return &ControlService{
		Sessions: sessions,
		Logger:   log,
	}
}

// -----------------------------------------------------------------------------

func (s *ControlService) ListBooks(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	books := make([]any, 0, s.Sessions.Len())
	for _, b := range s.Sessions.List() {
		books = append(books, bookSummary(b))
	}

	out, err := structpb.NewStruct(map[string]any{
		"run_id": s.Sessions.RunID,
		"books":  books,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode books: %v", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (s *ControlService) OpenBook(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := marketID(req)
	if err != nil {
		return nil, err
	}

	b, err := s.Sessions.Open(id)
	if err != nil {
		return nil, toStatus(err)
	}
	s.Logger.Info("gRPC: opened book %s", id)

	out, err := structpb.NewStruct(bookSummary(b))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode book: %v", err)
	}
	return out, nil
}

func (s *ControlService) PauseBook(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	return s.apply(req, "paused", s.Sessions.Pause)
}

func (s *ControlService) ResumeBook(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	return s.apply(req, "resumed", s.Sessions.Resume)
}

func (s *ControlService) CloseBook(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	return s.apply(req, "closed", s.Sessions.Close)
}

func (s *ControlService) apply(req *structpb.Struct, verb string, fn func(string) error) (*emptypb.Empty, error) {
	id, err := marketID(req)
	if err != nil {
		return nil, err
	}
	if err := fn(id); err != nil {
		return nil, toStatus(err)
	}
	s.Logger.Info("gRPC: %s book %s", verb, id)
	return &emptypb.Empty{}, nil
}

// -----------------------------------------------------------------------------

func marketID(req *structpb.Struct) (string, error) {
	id := req.GetFields()["market_id"].GetStringValue()
	if id == "" {
		return "", status.Error(codes.InvalidArgument, "market_id is required")
	}
	return id, nil
}

func bookSummary(b *market.BookSession) map[string]any {
	snap := b.Snapshot()
	return map[string]any{
		"market_id":        b.MarketID,
		"paused":           b.Paused(),
		"armed":            b.Armed(),
		"sequence":         snap.Sequence,
		"ticks":            b.TickCount(),
		"last_price_cents": snap.LastPriceCents,
		"spread_cents":     snap.SpreadCents,
		"opened_at":        b.OpenedAt().UTC().Format(time.RFC3339),
	}
}

func toStatus(err error) error {
	switch {
	case helpers.IsNotFound(err):
		return status.Error(codes.NotFound, err.Error())
	case helpers.IsValidation(err):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
