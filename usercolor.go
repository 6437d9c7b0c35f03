package showdown

import (
	"crypto/md5"
	"encoding/hex"
	"math"
	"strconv"
)

// UsernameColor 计算用户名的展示颜色（HSL），与官方客户端一致：
// 由规范化用户名的 MD5 派生色相/饱和度/亮度，再按感知亮度修正。
// 供渲染 HTML 的插件使用。
func UsernameColor(name string) (h, s, l float64) {
	sum := md5.Sum([]byte(ToID(name)))
	digest := hex.EncodeToString(sum[:])

	h = float64(hexInt(digest[4:8]) % 360)
	s = float64(hexInt(digest[0:4])%50 + 40)
	l = float64(hexInt(digest[8:12])%20 + 30)

	r, g, b := hslToRGB(h, s, l)

	// 感知亮度修正，避免过亮或过暗的用户名颜色
	lum := r*r*r*0.2126 + g*g*g*0.7152 + b*b*b*0.0722
	hlMod := (lum - 0.2) * -150
	switch {
	case hlMod > 18:
		hlMod = (hlMod - 18) * 2.5
	case hlMod < 0:
		hlMod = hlMod / 3
	default:
		hlMod = 0
	}

	hDist := math.Min(math.Abs(180-h), math.Abs(240-h))
	if hDist < 15 {
		hlMod += (15 - hDist) / 3
	}

	return h, s, l + hlMod
}

// hexInt 解析十六进制片段，digest 来自 MD5 故不会失败
func hexInt(s string) int {
	n, _ := strconv.ParseUint(s, 16, 32)
	return int(n)
}

// hslToRGB HSL -> RGB，分量取值 [0,1]
func hslToRGB(h, s, l float64) (r, g, b float64) {
	h /= 360
	s /= 100
	l /= 100

	if s == 0 {
		return l, l, l
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q

	return hueToRGB(p, q, h+1.0/3), hueToRGB(p, q, h), hueToRGB(p, q, h-1.0/3)
}

// hueToRGB HSL 转换的单通道辅助
func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	default:
		return p
	}
}
