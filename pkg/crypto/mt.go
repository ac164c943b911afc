package crypto

import "encoding/binary"

const (
	n         = 624
	m         = 397
	matrixA   = 0x9908b0df
	upperMask = 0x80000000
	lowerMask = 0x7fffffff
)

// RNGMT はメルセンヌ・ツイスタ (MT19937) 疑似乱数生成器です。
// CPZ7 のインデックス鍵ストリームと置換テーブルの生成に使います。
type RNGMT struct {
	mt  [n]uint32
	mti int
}

// NewRNGMT は指定されたシードで RNGMT を初期化して返します。
func NewRNGMT(seed uint32) *RNGMT {
	r := &RNGMT{}
	r.init(seed)
	return r
}

// init は指定されたシードで RNGMT を初期化します。
func (r *RNGMT) init(seed uint32) {
	r.mt[0] = seed
	for r.mti = 1; r.mti < n; r.mti++ {
		r.mt[r.mti] = (1812433253*(r.mt[r.mti-1]^(r.mt[r.mti-1]>>30)) + uint32(r.mti))
	}
}

// NextInt32 は次の32ビット符号なし乱数を生成して返します。
func (r *RNGMT) NextInt32() uint32 {
	var y uint32
	mag01 := [2]uint32{0x0, matrixA}

	if r.mti >= n {
		var kk int

		for kk = 0; kk < n-m; kk++ {
			y = (r.mt[kk] & upperMask) | (r.mt[kk+1] & lowerMask)
			r.mt[kk] = r.mt[kk+m] ^ (y >> 1) ^ mag01[y&0x1]
		}
		for ; kk < n-1; kk++ {
			y = (r.mt[kk] & upperMask) | (r.mt[kk+1] & lowerMask)
			r.mt[kk] = r.mt[kk+(m-n)] ^ (y >> 1) ^ mag01[y&0x1]
		}
		y = (r.mt[n-1] & upperMask) | (r.mt[0] & lowerMask)
		r.mt[n-1] = r.mt[m-1] ^ (y >> 1) ^ mag01[y&0x1]

		r.mti = 0
	}

	y = r.mt[r.mti]
	r.mti++

	// Tempering
	y ^= (y >> 11)
	y ^= (y << 7) & 0x9d2c5680
	y ^= (y << 15) & 0xefc60000
	y ^= (y >> 18)

	return y
}

// KeyStream はデータを乱数列と XOR します。
// 4バイトごとに1語を消費し、4バイトに満たない末尾は1バイトごとに1語を消費します。
func (r *RNGMT) KeyStream(data []byte) {
	i := 0
	for ; i+4 <= len(data); i += 4 {
		v := binary.LittleEndian.Uint32(data[i:])
		binary.LittleEndian.PutUint32(data[i:], v^r.NextInt32())
	}
	for ; i < len(data); i++ {
		data[i] ^= byte(r.NextInt32())
	}
}

// Permutation は 0..255 を乱数で並べ替えた置換テーブルを返します (Fisher-Yates)
func (r *RNGMT) Permutation() [256]byte {
	var table [256]byte
	for i := range table {
		table[i] = byte(i)
	}
	for i := 255; i > 0; i-- {
		j := r.NextInt32() % uint32(i+1)
		table[i], table[j] = table[j], table[i]
	}
	return table
}

// Inverse は置換テーブルの逆写像を返します
func Inverse(table [256]byte) [256]byte {
	var inv [256]byte
	for i, v := range table {
		inv[v] = byte(i)
	}
	return inv
}
