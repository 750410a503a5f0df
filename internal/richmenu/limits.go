package richmenu

// LINE rich menu limits (rune counts for text fields).
// References: https://developers.line.biz/en/reference/messaging-api/#rich-menu-object
const (
	MinMenuWidth       = 800
	MaxMenuWidth       = 2500
	MinMenuHeight      = 250
	MinAspectRatio     = 1.45
	MaxAreaCount       = 20
	MaxNameLength      = 300
	MaxChatBarText     = 14
	MaxActionLabel     = 20
	MaxURILength       = 1000
	MaxMessageText     = 300
	MaxPostbackData    = 300
	MaxDisplayText     = 300
	MaxImageSizeBytes  = 1 << 20
	DefaultMenuName    = "Rich Menu"
	DefaultChatBarText = "Menu"
)

// CompactHeightThreshold separates compact templates from large ones.
const CompactHeightThreshold = 1000
