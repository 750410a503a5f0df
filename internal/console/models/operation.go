package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 操作类型常量
const (
	OperationCreate     = "create"
	OperationSetDefault = "set_default"
	OperationDelete     = "delete"
)

// 操作结果常量
const (
	OperationStatusSuccess = "success"
	OperationStatusFailed  = "failed"
)

// Operation 对 LINE 菜单的一次操作记录
type Operation struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequestID  string             `bson:"request_id,omitempty" json:"requestId,omitempty"`    // 请求 ID
	Kind       string             `bson:"kind" json:"kind"`                                   // create/set_default/delete
	RichMenuID string             `bson:"rich_menu_id,omitempty" json:"richMenuId,omitempty"` // 菜单 ID（创建失败时可能为空）
	MenuName   string             `bson:"menu_name,omitempty" json:"menuName,omitempty"`      // 菜单名称（仅创建）
	Step       string             `bson:"step,omitempty" json:"step,omitempty"`               // 失败的步骤
	Status     string             `bson:"status" json:"status"`                               // success/failed
	Error      string             `bson:"error,omitempty" json:"error,omitempty"`             // 失败原因
	CreatedAt  time.Time          `bson:"created_at" json:"createdAt"`                        // 创建时间（TTL索引）
}

// Succeeded 操作是否成功
func (o *Operation) Succeeded() bool {
	return o.Status == OperationStatusSuccess
}
