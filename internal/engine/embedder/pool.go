package embedder

// meanPool averages each title's token states over the positions its
// attention mask keeps, returning one row of length dim per title.
// hidden is [batch, seqLen, dim] and mask is [batch, seqLen], both row-major.
// A title whose mask keeps nothing pools to the zero vector.
func meanPool(hidden []float32, mask []int64, batch, seqLen, dim int) [][]float32 {
	rows := make([][]float32, batch)
	for b := range rows {
		row := make([]float32, dim)
		kept := 0
		for s, m := range mask[b*seqLen : (b+1)*seqLen] {
			if m == 0 {
				continue
			}
			kept++
			tok := hidden[(b*seqLen+s)*dim:][:dim]
			for d, v := range tok {
				row[d] += v
			}
		}
		if kept > 0 {
			scale := 1 / float32(kept)
			for d := range row {
				row[d] *= scale
			}
		}
		rows[b] = row
	}
	return rows
}
