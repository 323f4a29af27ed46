package cj

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var ErrDelisted = errors.New("cj: product delisted")

// APIError 业务失败响应
type APIError struct {
	Code      int
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cj api error [%d]: %s (requestId=%s)", e.Code, e.Message, e.RequestID)
}

// Is 使下架类错误可以被 errors.Is(err, ErrDelisted) 识别
func (e *APIError) Is(target error) bool {
	return target == ErrDelisted && isDelistedMessage(e.Message)
}

// AsError 将非成功响应转换为 *APIError，成功时返回 nil
func AsError(resp *Response) error {
	if resp == nil {
		return &APIError{Message: "empty response"}
	}
	if resp.OK() {
		return nil
	}
	return &APIError{Code: resp.Code, Message: resp.Message, RequestID: resp.RequestID}
}

var delistedPhrases = []string{
	"removed from shelves",
	"removed from shelf",
	"off the shelf",
	"off shelf",
	"delisted",
	"product has been removed",
	"已下架",
}

func isDelistedMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, p := range delistedPhrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsDelisted 判断错误或响应是否表示商品已下架
func IsDelisted(err error) bool {
	return err != nil && errors.Is(err, ErrDelisted)
}

// IsTimeout 连接/读取超时
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
