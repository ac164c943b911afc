// Package crypto はアーカイブの復号で使う鍵ストリームと展開アルゴリズムを提供します。
package crypto

import "encoding/binary"

// XORCycle はデータを繰り返しキーで XOR します。
// offset はデータ先頭がキーストリーム上のどの位置にあたるかを示します。
func XORCycle(data, key []byte, offset int) {
	if len(key) == 0 {
		return
	}
	k := offset % len(key)
	for i := range data {
		data[i] ^= key[k]
		k++
		if k == len(key) {
			k = 0
		}
	}
}

// XORWords はデータを32ビットのリトルエンディアン語単位で key と XOR します。
// 4バイトに満たない末尾は key の下位バイトから順に XOR します。
func XORWords(data []byte, key uint32) {
	i := 0
	for ; i+4 <= len(data); i += 4 {
		v := binary.LittleEndian.Uint32(data[i:])
		binary.LittleEndian.PutUint32(data[i:], v^key)
	}
	for j := 0; i < len(data); i, j = i+1, j+1 {
		data[i] ^= byte(key >> (8 * j))
	}
}
