package api

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-failchain/internal/failure"
	"github.com/miradorstack/mirador-failchain/internal/models"
)

// FromProtoLegacyRequest maps a NormalizeLegacyText request into a legacy record.
// Absent or null blobs stay nil so the parser can reject them.
func FromProtoLegacyRequest(req *structpb.Struct) (failure.LegacyText, error) {
	if req == nil {
		return failure.LegacyText{}, fmt.Errorf("request is nil")
	}

	exceptionType, err := optionalString(req, "exception_type")
	if err != nil {
		return failure.LegacyText{}, err
	}
	messages, err := optionalString(req, "messages")
	if err != nil {
		return failure.LegacyText{}, err
	}
	stackTraces, err := optionalString(req, "stack_traces")
	if err != nil {
		return failure.LegacyText{}, err
	}

	record := failure.LegacyText{Messages: messages, StackTraces: stackTraces}
	if exceptionType != nil {
		record.ExceptionType = *exceptionType
	}
	return record, nil
}

func optionalString(req *structpb.Struct, name string) (*string, error) {
	v, ok := req.GetFields()[name]
	if !ok || v == nil {
		return nil, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return nil, nil
	case *structpb.Value_StringValue:
		s := kind.StringValue
		return &s, nil
	default:
		return nil, fmt.Errorf("%s must be a string", name)
	}
}

// ToProtoReport converts a normalized report into the response struct.
func ToProtoReport(report models.Report) *structpb.Struct {
	chain := report.Chain

	fields := map[string]*structpb.Value{
		"report_id":      structpb.NewStringValue(report.ID),
		"source":         structpb.NewStringValue(string(report.Source)),
		"mismatch":       structpb.NewBoolValue(report.Mismatch),
		"types":          optionalList(chain.Types()),
		"messages":       stringList(chain.Messages()),
		"stack_traces":   optionalList(chain.StackTraces()),
		"parent_indices": intList(chain.ParentIndices()),
	}
	if !report.CreatedAt.IsZero() {
		fields["created_at"] = structpb.NewStringValue(report.CreatedAt.Format(time.RFC3339Nano))
	}
	return &structpb.Struct{Fields: fields}
}

func optionalList(values []*string) *structpb.Value {
	out := make([]*structpb.Value, 0, len(values))
	for _, v := range values {
		if v == nil {
			out = append(out, structpb.NewNullValue())
			continue
		}
		out = append(out, structpb.NewStringValue(*v))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: out})
}

func stringList(values []string) *structpb.Value {
	out := make([]*structpb.Value, 0, len(values))
	for _, v := range values {
		out = append(out, structpb.NewStringValue(v))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: out})
}

func intList(values []int) *structpb.Value {
	out := make([]*structpb.Value, 0, len(values))
	for _, v := range values {
		out = append(out, structpb.NewNumberValue(float64(v)))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: out})
}
