package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeMissingNode, "node %q does not exist", "a")

	if err.Code != ErrCodeMissingNode {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeMissingNode)
	}

	if err.Message != `node "a" does not exist` {
		t.Errorf("Message = %v", err.Message)
	}

	expected := `GRAPH_MISSING_NODE: node "a" does not exist`
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeInvalidTyping, cause, "typing G->T")

	if err.Code != ErrCodeInvalidTyping {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidTyping)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	unwrapped := errors.Unwrap(err)
	if unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}
}

func TestIs(t *testing.T) {
	err := New(ErrCodeCycle, "typing edge would create a cycle")

	if !Is(err, ErrCodeCycle) {
		t.Error("Is should match the error's own code")
	}
	if Is(err, ErrCodeMissingNode) {
		t.Error("Is should not match a different code")
	}
	if Is(errors.New("plain"), ErrCodeCycle) {
		t.Error("Is should not match a plain error")
	}

	// Code survives wrapping with %w.
	wrapped := fmt.Errorf("while adding typing: %w", err)
	if !Is(wrapped, ErrCodeCycle) {
		t.Error("Is should unwrap the error chain")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeNotMonic, "non-injective match")); got != ErrCodeNotMonic {
		t.Errorf("GetCode = %v, want %v", got, ErrCodeNotMonic)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode on plain error = %v, want empty", got)
	}
}

func TestCategoryPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
		want bool
	}{
		{"GraphError", New(ErrCodeDuplicateNode, "x"), IsGraphError, true},
		{"GraphErrorNegative", New(ErrCodeCycle, "x"), IsGraphError, false},
		{"HomomorphismError", New(ErrCodeAttrsNotSubset, "x"), IsHomomorphismError, true},
		{"ConsistencyError", New(ErrCodeNonCommuting, "x"), IsConsistencyError, true},
		{"ConsistencyErrorNegative", New(ErrCodeNotMonic, "x"), IsConsistencyError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pred(tt.err); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateID(t *testing.T) {
	if err := ValidateID("agent"); err != nil {
		t.Errorf("valid id rejected: %v", err)
	}
	if err := ValidateID(""); err == nil {
		t.Error("empty id accepted")
	}
	if err := ValidateID("a\x00b"); err == nil {
		t.Error("control character accepted")
	}
}

func TestValidateAttrName(t *testing.T) {
	if err := ValidateAttrName("activity"); err != nil {
		t.Errorf("valid name rejected: %v", err)
	}
	if err := ValidateAttrName("_internal"); err == nil {
		t.Error("reserved name accepted")
	}
}
