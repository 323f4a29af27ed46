package service

import (
	"errors"
	"strings"
)

// ErrEmptyPayload 载荷缺少外部 ID，导入按空操作处理，不返回给调用方
var ErrEmptyPayload = errors.New("supplier payload has no external id")

// OutcomeStatus 副作用执行结果
type OutcomeStatus string

const (
	OutcomeDispatched OutcomeStatus = "dispatched"
	OutcomeSkipped    OutcomeStatus = "skipped"
	OutcomeFailed     OutcomeStatus = "failed"
)

// Outcome 尽力而为的副作用结果，调用方记录日志后按策略丢弃
type Outcome struct {
	Status OutcomeStatus
	Reason string
	// Changed 副作用实际改动的标记，如 variants / images / videos
	Changed []string
}

func dispatched(reason string, changed ...string) Outcome {
	return Outcome{Status: OutcomeDispatched, Reason: reason, Changed: changed}
}

func skipped(reason string) Outcome {
	return Outcome{Status: OutcomeSkipped, Reason: reason}
}

func failed(err error) Outcome {
	return Outcome{Status: OutcomeFailed, Reason: err.Error()}
}

func (o Outcome) Failed() bool {
	return o.Status == OutcomeFailed
}

func (o Outcome) String() string {
	var b strings.Builder
	b.WriteString(string(o.Status))
	if o.Reason != "" {
		b.WriteString(": ")
		b.WriteString(o.Reason)
	}
	if len(o.Changed) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(o.Changed, ","))
		b.WriteString("]")
	}
	return b.String()
}
