// internal/blockchain/program_error.go
package blockchain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ProgramError is an instruction failure decoded from a transaction error
// payload such as {"InstructionError":[0,{"Custom":3012}]}.
type ProgramError struct {
	Instruction int
	Custom      uint32
	HasCustom   bool
	Raw         interface{}
}

func (e *ProgramError) Error() string {
	if e.HasCustom {
		return fmt.Sprintf("instruction %d failed with custom program error %d", e.Instruction, e.Custom)
	}
	return fmt.Sprintf("transaction failed: %s", DescribeTxError(e.Raw))
}

// ParseProgramError decodes the node's error payload. It returns nil for a nil payload.
func ParseProgramError(raw interface{}) *ProgramError {
	if raw == nil {
		return nil
	}
	pe := &ProgramError{Raw: raw, Instruction: -1}

	m, ok := raw.(map[string]interface{})
	if !ok {
		return pe
	}
	tuple, ok := m["InstructionError"].([]interface{})
	if !ok || len(tuple) != 2 {
		return pe
	}
	if idx, ok := toInt64(tuple[0]); ok {
		pe.Instruction = int(idx)
	}
	detail, ok := tuple[1].(map[string]interface{})
	if !ok {
		return pe
	}
	if code, ok := toInt64(detail["Custom"]); ok && code >= 0 {
		pe.Custom = uint32(code)
		pe.HasCustom = true
	}
	return pe
}

// DescribeTxError renders an error payload as compact JSON for logs and messages.
func DescribeTxError(raw interface{}) string {
	if raw == nil {
		return "null"
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Sprintf("%v", raw)
	}
	return string(b)
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case uint32:
		return int64(n), true
	case json.Number:
		i, err := strconv.ParseInt(n.String(), 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}
