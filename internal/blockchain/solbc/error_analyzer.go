package solbc

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-relay/internal/blockchain"
)

// AnchorError represents an error from Anchor framework
type AnchorError struct {
	Code        int    `json:"code"`
	Name        string `json:"name"`
	Msg         string `json:"msg"`
	ProgramID   string `json:"programId,omitempty"`
	Instruction int    `json:"instruction,omitempty"`
}

// ErrorAnalyzer provides methods to analyze Solana transaction errors
type ErrorAnalyzer struct {
	logger *zap.Logger
}

// NewErrorAnalyzer creates a new ErrorAnalyzer instance
func NewErrorAnalyzer(logger *zap.Logger) *ErrorAnalyzer {
	return &ErrorAnalyzer{
		logger: logger.Named("error-analyzer"),
	}
}

// AnalyzeRPCError analyzes a jsonrpc.RPCError and extracts detailed information
func (ea *ErrorAnalyzer) AnalyzeRPCError(err error) map[string]interface{} {
	if err == nil {
		return map[string]interface{}{
			"error": "No error provided",
		}
	}

	rpcErr, ok := err.(*jsonrpc.RPCError)
	if !ok {
		return map[string]interface{}{
			"type":    "generic_error",
			"message": err.Error(),
		}
	}

	result := map[string]interface{}{
		"type":    "rpc_error",
		"code":    rpcErr.Code,
		"message": rpcErr.Message,
	}

	dataMap, ok := rpcErr.Data.(map[string]interface{})
	if !ok {
		return result
	}

	if logs, ok := dataMap["logs"].([]interface{}); ok {
		result["logs"] = logs
		for _, logEntry := range logs {
			logStr, ok := logEntry.(string)
			if !ok || !strings.Contains(logStr, "AnchorError occurred") {
				continue
			}
			anchorErr := ea.parseAnchorErrorLog(logStr)
			result["anchor_error"] = anchorErr
			ea.logger.Warn("Anchor error detected",
				zap.Int("code", anchorErr.Code),
				zap.String("name", anchorErr.Name),
				zap.String("message", anchorErr.Msg))
		}
	}

	if txErr, ok := dataMap["err"]; ok && txErr != nil {
		result["instruction_error"] = txErr
		if pe := blockchain.ParseProgramError(txErr); pe != nil && pe.HasCustom {
			result["custom_code"] = pe.Custom
		}
	}

	return result
}

// parseAnchorErrorLog parses an Anchor error log string
// Example: "Program log: AnchorError occurred. Error Code: InstructionFallbackNotFound. Error Number: 101. Error Message: Fallback functions are not supported."
func (ea *ErrorAnalyzer) parseAnchorErrorLog(logStr string) AnchorError {
	result := AnchorError{}

	if parts := strings.Split(logStr, "Error Number:"); len(parts) > 1 {
		numParts := strings.Split(parts[1], ".")
		fmt.Sscanf(strings.TrimSpace(numParts[0]), "%d", &result.Code)
	}

	if parts := strings.Split(logStr, "Error Code:"); len(parts) > 1 {
		result.Name = strings.TrimSpace(strings.Split(parts[1], ".")[0])
	}

	if parts := strings.Split(logStr, "Error Message:"); len(parts) > 1 {
		result.Msg = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(parts[1]), "."))
	}

	return result
}

// FormatErrorAnalysis formats the error analysis for logging or display
func (ea *ErrorAnalyzer) FormatErrorAnalysis(analysis map[string]interface{}) string {
	jsonBytes, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error formatting analysis: %v", err)
	}
	return string(jsonBytes)
}
