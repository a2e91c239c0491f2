package policy

import (
	"errors"
	"fmt"
)

var (
	ErrPolicyViolation = errors.New("policy violation")
	// ErrUpdateDenied 只追加表的任何更新都会被拒绝，与调用方权限无关
	ErrUpdateDenied = errors.New("update denied")
)

// Violation 写操作被某条命名策略拒绝
type Violation struct {
	Policy string
	Op     Operation
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s: %s rejected by %q", ErrPolicyViolation, v.Op, v.Policy)
}

func (v *Violation) Is(target error) bool { return target == ErrPolicyViolation }
