package services

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/miradorstack/mirador-failchain/internal/api"
	"github.com/miradorstack/mirador-failchain/internal/failure"
	"github.com/miradorstack/mirador-failchain/internal/models"
	"github.com/miradorstack/mirador-failchain/internal/utils"
)

// Normalizer converts legacy records and result documents into reports.
type Normalizer interface {
	NormalizeLegacy(ctx context.Context, record failure.LegacyText) (models.Report, error)
	NormalizeXML(ctx context.Context, data []byte) (models.Report, error)
}

// FailChainService implements the gRPC FailureChain service.
type FailChainService struct {
	logger     *slog.Logger
	normalizer Normalizer
}

var _ api.FailureChainServer = (*FailChainService)(nil)

// NewFailChainService constructs the service facade.
func NewFailChainService(logger *slog.Logger, normalizer Normalizer) *FailChainService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FailChainService{
		logger:     logger,
		normalizer: normalizer,
	}
}

// NormalizeLegacyText converts the three legacy text fields into a report.
func (s *FailChainService) NormalizeLegacyText(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.normalizer == nil {
		return nil, status.Error(codes.FailedPrecondition, "normalizer not configured")
	}

	record, err := api.FromProtoLegacyRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	report, err := s.normalizer.NormalizeLegacy(ctx, record)
	if err != nil {
		return nil, s.statusFor("legacy", err)
	}
	return api.ToProtoReport(report), nil
}

// NormalizeXML extracts and converts the failure record of a result document.
func (s *FailChainService) NormalizeXML(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	if req == nil || len(req.GetValue()) == 0 {
		return nil, status.Error(codes.InvalidArgument, "document cannot be empty")
	}
	if s.normalizer == nil {
		return nil, status.Error(codes.FailedPrecondition, "normalizer not configured")
	}

	report, err := s.normalizer.NormalizeXML(ctx, req.GetValue())
	if err != nil {
		return nil, s.statusFor("xml", err)
	}
	return api.ToProtoReport(report), nil
}

// statusFor maps rejected input to InvalidArgument and anything else to Internal.
func (s *FailChainService) statusFor(pipeline string, err error) error {
	if utils.IsInputError(err) || errors.Is(err, failure.ErrNilArgument) {
		s.logger.Debug("normalization rejected", slog.String("pipeline", pipeline), slog.Any("error", err))
		return status.Error(codes.InvalidArgument, err.Error())
	}
	s.logger.Error("normalization failed", slog.String("pipeline", pipeline), slog.Any("error", err))
	return status.Error(codes.Internal, "normalization failed")
}
