package service

import "fmt"

// ValidationError 提交参数不合法，原样返回给用户，不做纠正
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidStateError 实体当前状态不允许该操作，不应自动重试
type InvalidStateError struct {
	Entity string
	ID     int64
	State  string
	Want   string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %d is %s, want %s", e.Entity, e.ID, e.State, e.Want)
}

// VerificationIncompleteError 审核事务失败已回滚，凭证仍为 pending，可安全重试
type VerificationIncompleteError struct {
	ClaimID int64
	Err     error
}

func (e *VerificationIncompleteError) Error() string {
	return fmt.Sprintf("verification of claim %d incomplete: %v", e.ClaimID, e.Err)
}

func (e *VerificationIncompleteError) Unwrap() error {
	return e.Err
}
