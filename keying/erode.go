package keying

// Erode 对 alpha 通道做 strength 次侵蚀，每次向内收缩一层像素
//
//	每轮先复制 alpha 快照，所有判断只读快照，避免同一轮内连锁侵蚀
//	最外一圈像素不参与侵蚀
//
// 返回被侵蚀的像素总数
func Erode(pix []byte, width, height, strength int) int {
	if strength <= 0 || width < 3 || height < 3 {
		return 0
	}

	snapshot := make([]uint8, width*height)
	total := 0

	for k := 0; k < strength; k++ {
		for i := range snapshot {
			snapshot[i] = pix[i*4+3]
		}

		eroded := 0
		for y := 1; y < height-1; y++ {
			for x := 1; x < width-1; x++ {
				idx := y*width + x
				if snapshot[idx] == 0 {
					continue
				}
				if snapshot[idx-1] == 0 || snapshot[idx+1] == 0 ||
					snapshot[idx-width] == 0 || snapshot[idx+width] == 0 {
					pix[idx*4+3] = 0
					eroded++
				}
			}
		}

		total += eroded
		// 本轮没有变化，后续轮次也不会变化
		if eroded == 0 {
			break
		}
	}

	return total
}
