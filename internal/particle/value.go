// Package particle 数据驱动的粒子发射器
//
// 发射器定义在 YAML 中（data/emitters.yaml），数值字段支持三种写法：
//   - 固定值: "1.5"
//   - 范围: "[0.7 0.9]"，每个粒子在范围内随机取值
//   - 关键帧: "0,1 0.6,1 1,0"，按归一化寿命 time,value 插值
package particle

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"strings"
)

// Range 随机取值范围
type Range struct {
	Min, Max float64
}

// ParseRange 解析 "1.5" / "[min max]" / "[value]"
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Range{}, nil
	}

	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		parts := strings.Fields(strings.TrimSuffix(strings.TrimPrefix(s, "["), "]"))
		switch len(parts) {
		case 1:
			v, err := strconv.ParseFloat(parts[0], 64)
			if err != nil {
				return Range{}, fmt.Errorf("invalid range %q: %w", s, err)
			}
			return Range{Min: v, Max: v}, nil
		case 2:
			lo, err1 := strconv.ParseFloat(parts[0], 64)
			hi, err2 := strconv.ParseFloat(parts[1], 64)
			if err1 != nil || err2 != nil {
				return Range{}, fmt.Errorf("invalid range %q", s)
			}
			if lo > hi {
				lo, hi = hi, lo
			}
			return Range{Min: lo, Max: hi}, nil
		}
		return Range{}, fmt.Errorf("invalid range %q: want [min max]", s)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Range{}, fmt.Errorf("invalid value %q: %w", s, err)
	}
	return Range{Min: v, Max: v}, nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (r *Range) UnmarshalText(text []byte) error {
	parsed, err := ParseRange(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Sample 在范围内随机取值
func (r Range) Sample(rng *rand.Rand) float64 {
	if r.Min >= r.Max {
		return r.Min
	}
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// Keyframe 曲线上的一个点
type Keyframe struct {
	Time  float64 // 归一化时间 0~1
	Value float64
}

// Interpolation 关键帧插值方式
type Interpolation string

const (
	Linear        Interpolation = "Linear"
	EaseIn        Interpolation = "EaseIn"
	EaseOut       Interpolation = "EaseOut"
	FastInOutWeak Interpolation = "FastInOutWeak"
)

// Curve 关键帧曲线，空曲线恒为 1
type Curve struct {
	Keys   []Keyframe
	Interp Interpolation
}

// ParseCurve 解析 "time,value time,value ..."，可带一个插值关键字
//
// 单独的数值视为时间 0 的初值；关键帧按时间排序。
func ParseCurve(s string) (Curve, error) {
	var c Curve
	for _, part := range strings.Fields(s) {
		switch Interpolation(part) {
		case Linear, EaseIn, EaseOut, FastInOutWeak:
			c.Interp = Interpolation(part)
			continue
		}

		if !strings.Contains(part, ",") {
			v, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return Curve{}, fmt.Errorf("invalid keyframe %q: %w", part, err)
			}
			if len(c.Keys) > 0 {
				return Curve{}, fmt.Errorf("initial value %q must come first", part)
			}
			c.Keys = append(c.Keys, Keyframe{Time: 0, Value: v})
			continue
		}

		pair := strings.SplitN(part, ",", 2)
		t, err1 := strconv.ParseFloat(pair[0], 64)
		v, err2 := strconv.ParseFloat(pair[1], 64)
		if err1 != nil || err2 != nil {
			return Curve{}, fmt.Errorf("invalid keyframe %q", part)
		}
		if t < 0 || t > 1 {
			return Curve{}, fmt.Errorf("keyframe time %v out of [0, 1]", t)
		}
		c.Keys = append(c.Keys, Keyframe{Time: t, Value: v})
	}
	sort.SliceStable(c.Keys, func(i, j int) bool { return c.Keys[i].Time < c.Keys[j].Time })
	return c, nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (c *Curve) UnmarshalText(text []byte) error {
	parsed, err := ParseCurve(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Eval 计算归一化时间 t 处的值
func (c Curve) Eval(t float64) float64 {
	keys := c.Keys
	switch len(keys) {
	case 0:
		return 1
	case 1:
		return keys[0].Value
	}

	t = math.Max(0, math.Min(1, t))
	if t <= keys[0].Time {
		return keys[0].Value
	}
	for i := 0; i < len(keys)-1; i++ {
		k0, k1 := keys[i], keys[i+1]
		if t > k1.Time {
			continue
		}
		d := k1.Time - k0.Time
		if d <= 0 {
			return k1.Value
		}
		ratio := (t - k0.Time) / d
		switch c.Interp {
		case EaseIn:
			ratio = ratio * ratio
		case EaseOut:
			ratio = 1 - (1-ratio)*(1-ratio)
		case FastInOutWeak:
			ratio = ratio * ratio * (3 - 2*ratio)
		}
		return k0.Value + ratio*(k1.Value-k0.Value)
	}
	return keys[len(keys)-1].Value
}
