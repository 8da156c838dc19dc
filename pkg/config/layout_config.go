package config

// 布局配置常量
// 本文件定义了窗口与场景中 UI 元素的位置，所有坐标都是逻辑屏幕坐标

const (
	// GameWindowWidth 默认窗口宽度（逻辑像素）
	GameWindowWidth = 800

	// GameWindowHeight 默认窗口高度（逻辑像素）
	GameWindowHeight = 600

	// FloorHeight 地面容器高度；地面线 = 屏幕高度 - FloorHeight
	FloorHeight = 40.0

	// RollButtonX/Y/W/H 掷骰按钮（左上角）
	RollButtonX = 16.0
	RollButtonY = 16.0
	RollButtonW = 132.0
	RollButtonH = 36.0

	// DropHeightRatio 掉落起点占屏幕高度的比例
	DropHeightRatio = 0.2

	// HUDLineHeight DebugPrint 行高
	HUDLineHeight = 16
)

// FloorBounds 根据逻辑屏幕尺寸计算地面矩形
// 返回值：x, y, w, h；尺寸非法时返回全 0
func FloorBounds(width, height int) (float64, float64, float64, float64) {
	if width <= 0 || height <= 0 {
		return 0, 0, 0, 0
	}
	h := FloorHeight
	if float64(height) < h {
		h = float64(height)
	}
	return 0, float64(height) - h, float64(width), h
}

// InRollButton 判断点是否落在掷骰按钮内
func InRollButton(x, y float64) bool {
	return x >= RollButtonX && x <= RollButtonX+RollButtonW &&
		y >= RollButtonY && y <= RollButtonY+RollButtonH
}
