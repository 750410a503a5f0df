package richmenu

import "encoding/json"

// Action 类型常量
const (
	ActionTypeURI      = "uri"
	ActionTypeMessage  = "message"
	ActionTypePostback = "postback"
)

// Size 菜单图片尺寸（像素）
type Size struct {
	Width  int `json:"width" yaml:"width" validate:"min=800,max=2500"`
	Height int `json:"height" yaml:"height" validate:"min=250"`
}

// Bounds 可点击区域的位置和大小
type Bounds struct {
	X      int `json:"x" yaml:"x" validate:"min=0"`
	Y      int `json:"y" yaml:"y" validate:"min=0"`
	Width  int `json:"width" yaml:"width" validate:"min=1"`
	Height int `json:"height" yaml:"height" validate:"min=1"`
}

// Action 点击区域后触发的动作
type Action struct {
	Type        string `json:"type" yaml:"type" validate:"oneof=uri message postback"`
	Label       string `json:"label,omitempty" yaml:"label,omitempty" validate:"omitempty,max=20"`
	URI         string `json:"uri,omitempty" yaml:"uri,omitempty" validate:"omitempty,max=1000"`
	Text        string `json:"text,omitempty" yaml:"text,omitempty" validate:"omitempty,max=300"`
	Data        string `json:"data,omitempty" yaml:"data,omitempty" validate:"omitempty,max=300"`
	DisplayText string `json:"displayText,omitempty" yaml:"displayText,omitempty" validate:"omitempty,max=300"`

	// Extra 其余 LINE 动作字段（如 inputOption、fillInText、altUri），原样转发
	Extra map[string]json.RawMessage `json:"-" yaml:"-"`
}

// actionFields 与 Action 字段相同但不带自定义编解码
type actionFields Action

var actionKeys = []string{"type", "label", "uri", "text", "data", "displayText"}

// UnmarshalJSON 解析已知字段，其余字段保存在 Extra
func (a *Action) UnmarshalJSON(data []byte) error {
	var fields actionFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, key := range actionKeys {
		delete(all, key)
	}

	fields.Extra = nil
	if len(all) > 0 {
		fields.Extra = all
	}
	*a = Action(fields)
	return nil
}

// MarshalJSON 输出已知字段并合并 Extra；同名时以已知字段为准
func (a Action) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(actionFields(a))
	if err != nil || len(a.Extra) == 0 {
		return known, err
	}

	merged := make(map[string]json.RawMessage, len(a.Extra)+len(actionKeys))
	for key, value := range a.Extra {
		merged[key] = value
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for key, value := range fields {
		merged[key] = value
	}
	return json.Marshal(merged)
}

// Area 上游接口使用的区域格式（bounds 包裹坐标）
type Area struct {
	Bounds Bounds `json:"bounds"`
	Action Action `json:"action"`
}

// FlatArea 编辑器使用的区域格式（坐标平铺）
type FlatArea struct {
	X      int    `json:"x" yaml:"x"`
	Y      int    `json:"y" yaml:"y"`
	Width  int    `json:"width" yaml:"width"`
	Height int    `json:"height" yaml:"height"`
	Action Action `json:"action" yaml:"action"`
}

// RichMenu 注册到 LINE 的菜单配置
type RichMenu struct {
	Size        Size   `json:"size"`
	Selected    bool   `json:"selected"`
	Name        string `json:"name" validate:"required,max=300"`
	ChatBarText string `json:"chatBarText" validate:"required,max=14"`
	Areas       []Area `json:"areas" validate:"required,min=1,max=20,dive"`
}

// Design 编辑器状态：模板 + 平铺区域
type Design struct {
	TemplateID  string     `json:"templateId"`
	Name        string     `json:"name"`
	ChatBarText string     `json:"chatBarText"`
	Areas       []FlatArea `json:"areas"`
}

// Bounds 转换为上游格式的坐标
func (a FlatArea) Bounds() Bounds {
	return Bounds{X: a.X, Y: a.Y, Width: a.Width, Height: a.Height}
}

// ToArea 转换为 bounds 包裹格式
func (a FlatArea) ToArea() Area {
	return Area{Bounds: a.Bounds(), Action: a.Action}
}

// EmptyAction 未设置动作时的默认值
func EmptyAction() Action {
	return Action{Type: ActionTypeURI}
}
