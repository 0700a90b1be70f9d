package engine

import (
	"fmt"
	"math"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	svcErr "github.com/oggyb/meetbot/internal/errors"
)

// maxExactID is the largest integer a Struct number carries exactly.
const maxExactID = 1 << 53

// idOf reads a non-zero user id from a UInt64Value.
func idOf(v *wrapperspb.UInt64Value, name string) (uint64, error) {
	if v.GetValue() == 0 {
		return 0, svcErr.InvalidArgument(name + " is required")
	}
	return v.GetValue(), nil
}

// uintField reads a non-negative integer field given either as a number
// or as a decimal string.
func uintField(s *structpb.Struct, name string) (uint64, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return 0, svcErr.InvalidArgument(name + " is required")
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		f := k.NumberValue
		if f < 0 || f != math.Trunc(f) || f > maxExactID {
			return 0, svcErr.InvalidArgument(fmt.Sprintf("%s must be a non-negative integer", name))
		}
		return uint64(f), nil
	case *structpb.Value_StringValue:
		n, err := strconv.ParseUint(k.StringValue, 10, 64)
		if err != nil {
			return 0, svcErr.InvalidArgument(name + " must be a valid uint64")
		}
		return n, nil
	default:
		return 0, svcErr.InvalidArgument(name + " must be a number")
	}
}

// requiredID is uintField that also rejects zero.
func requiredID(s *structpb.Struct, name string) (uint64, error) {
	n, err := uintField(s, name)
	if err == nil && n == 0 {
		err = svcErr.InvalidArgument(name + " is required")
	}
	return n, err
}

func optionalString(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}

func optionalInt(s *structpb.Struct, name string) int {
	return int(s.GetFields()[name].GetNumberValue())
}

func optionalBool(s *structpb.Struct, name string) bool {
	return s.GetFields()[name].GetBoolValue()
}

// optionalFloat returns nil unless the field is a number.
func optionalFloat(s *structpb.Struct, name string) *float64 {
	v, ok := s.GetFields()[name].GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return nil
	}
	f := v.NumberValue
	return &f
}

// idValue encodes an id for a response: a number while it is exact as a
// double, a decimal string above that.
func idValue(id uint64) any {
	if id > maxExactID {
		return strconv.FormatUint(id, 10)
	}
	return id
}

// toStruct converts a plain map; only fails on unsupported value types,
// which is a programming error surfaced as Internal.
func toStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, svcErr.Map(fmt.Errorf("encode response: %w", err))
	}
	return s, nil
}

func strings2any(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
