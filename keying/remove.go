package keying

// RemoveGlobal 全图扫描，背景像素 alpha 置 0，其他像素保持不变
// 返回本次被置为透明的像素数
func RemoveGlobal(pix []byte, c Classifier) int {
	removed := 0
	for i := 0; i+3 < len(pix); i += 4 {
		if !c.IsBackground(pix[i], pix[i+1], pix[i+2]) {
			continue
		}
		if pix[i+3] != 0 {
			removed++
		}
		pix[i+3] = 0
	}
	return removed
}

type point struct {
	x, y int
}

// RemoveFlood 从四个角落开始，只沿 4 连通的背景像素向内扩散
// 与角落不连通的背景色像素（例如主体内部的绿色道具）保持原样
func RemoveFlood(pix []byte, width, height int, c Classifier) int {
	if width <= 0 || height <= 0 {
		return 0
	}

	// 用显式栈代替递归，避免大图栈溢出
	stack := []point{{0, 0}, {width - 1, 0}, {0, height - 1}, {width - 1, height - 1}}
	visited := make([]bool, width*height)
	removed := 0

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		// 边界和访问检查在出栈时进行
		if p.x < 0 || p.x >= width || p.y < 0 || p.y >= height {
			continue
		}
		offset := p.y*width + p.x
		if visited[offset] {
			continue
		}
		visited[offset] = true

		idx := offset * 4
		if !c.IsBackground(pix[idx], pix[idx+1], pix[idx+2]) {
			continue
		}
		if pix[idx+3] != 0 {
			removed++
		}
		pix[idx+3] = 0

		stack = append(stack,
			point{p.x + 1, p.y},
			point{p.x - 1, p.y},
			point{p.x, p.y + 1},
			point{p.x, p.y - 1},
		)
	}

	return removed
}
