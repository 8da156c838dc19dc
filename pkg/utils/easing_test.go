package utils

import (
	"math"
	"testing"
)

// TestLerp 测试线性插值
func TestLerp(t *testing.T) {
	tests := []struct {
		name     string
		a, b, t  float64
		expected float64
	}{
		{"起点", 10, 20, 0, 10},
		{"终点", 10, 20, 1, 20},
		{"中点", 10, 20, 0.5, 15},
		{"反向", 1, 0, 0.25, 0.75},
		{"外推", 0, 10, 1.5, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Lerp(tt.a, tt.b, tt.t)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("Lerp(%v, %v, %v) = %v, 期望 %v", tt.a, tt.b, tt.t, result, tt.expected)
			}
		})
	}
}

// TestInverseLerp 测试反向插值
func TestInverseLerp(t *testing.T) {
	tests := []struct {
		name     string
		a, b, v  float64
		expected float64
	}{
		{"起点", 2, 4, 2, 0},
		{"中点", 2, 4, 3, 0.5},
		{"终点", 2, 4, 4, 1},
		{"退化区间", 3, 3, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := InverseLerp(tt.a, tt.b, tt.v)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("InverseLerp(%v, %v, %v) = %v, 期望 %v", tt.a, tt.b, tt.v, result, tt.expected)
			}
			if tt.a != tt.b && math.Abs(Lerp(tt.a, tt.b, result)-tt.v) > 1e-9 {
				t.Errorf("Lerp(InverseLerp(%v)) 没有回到原值", tt.v)
			}
		})
	}
}

// TestClamp 测试区间限制
func TestClamp(t *testing.T) {
	tests := []struct {
		v, lo, hi float64
		expected  float64
	}{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{11, 0, 10, 10},
		{0, 0, 0, 0},
	}

	for _, tt := range tests {
		if got := Clamp(tt.v, tt.lo, tt.hi); got != tt.expected {
			t.Errorf("Clamp(%v, %v, %v) = %v, 期望 %v", tt.v, tt.lo, tt.hi, got, tt.expected)
		}
	}
	if Clamp01(1.7) != 1 || Clamp01(-0.2) != 0 || Clamp01(0.4) != 0.4 {
		t.Error("Clamp01 返回值错误")
	}
}
