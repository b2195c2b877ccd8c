// internal/service/order/domain/state.go
package domain

import "github.com/pkg/errors"

// Status 定义了订单在后台的处理状态，取值即后台界面上显示的文字
type Status string

const (
	StatusNew        Status = "nuevo"      // 刚下单，等待备货
	StatusProcessing Status = "procesando" // 备货、配送中
	StatusDelivered  Status = "entregado"  // 已送达，终态
	StatusCancelled  Status = "cancelado"  // 已取消，终态
)

// transitions 列出每个状态允许流转到的下一个状态
var transitions = map[Status][]Status{
	StatusNew:        {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusDelivered, StatusCancelled},
}

// ParseStatus 校验并转换外部传入的状态字符串
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusNew, StatusProcessing, StatusDelivered, StatusCancelled:
		return st, nil
	}
	return "", errors.Wrapf(ErrInvalidStatus, "%q", s)
}

// CanTransitionTo 判断从当前状态能否流转到 next
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsFinal 终态订单不再接受任何状态变更
func (s Status) IsFinal() bool {
	return len(transitions[s]) == 0
}
