// Package magic はファイル先頭のシグネチャからアーカイブ形式を判別し、
// 形式ごとに使えるスキームを返します。
//
// 基本的な使い方:
//
//	header := make([]byte, magic.HeaderSize)
//	n, _ := io.ReadFull(f, header)
//	family := magic.Parse(header[:n])
//	if family.IsUniversal() {
//	    arc, err := family.Schemes()[0].Extract(path)
//	    // ...
//	}
package magic

import (
	"bytes"
	"slices"

	"github.com/shiroemons/go-akaibu/pkg/scheme"
)

// HeaderSize は判別のために読む先頭バイト数です
const HeaderSize = 32

// Archive はアーカイブ形式のファミリーです
type Archive int

// アーカイブ形式
const (
	NotRecognized Archive = iota
	ACV1
	CPZ7
	GXP
	PF6
	PF8
	Buriko
	PackFile
)

// signatures は判定順のシグネチャ表です。最初に一致したものを採用します。
var signatures = []struct {
	family Archive
	sig    []byte
}{
	{ACV1, []byte(scheme.ACV1Magic)},
	{CPZ7, []byte(scheme.CPZ7Magic)},
	{GXP, []byte(scheme.GXPMagic)},
	{PF6, []byte(scheme.PF6Magic)},
	{PF8, []byte(scheme.PF8Magic)},
	{Buriko, []byte(scheme.BurikoMagic)},
	{PackFile, []byte(scheme.PackFileMagic)},
}

var familyNames = map[Archive]string{
	NotRecognized: "NotRecognized",
	ACV1:          "ACV1",
	CPZ7:          "CPZ7",
	GXP:           "GXP",
	PF6:           "PF6",
	PF8:           "PF8",
	Buriko:        "BURIKO ARC20",
	PackFile:      "PackFile",
}

// registry は形式ごとのスキーム一覧です。初期化後は変更しません。
var registry = buildRegistry()

func buildRegistry() map[Archive][]scheme.Scheme {
	r := map[Archive][]scheme.Scheme{
		GXP:      {scheme.NewGXPScheme()},
		PF6:      {scheme.NewPF6Scheme()},
		PF8:      {scheme.NewPF8Scheme()},
		Buriko:   {scheme.NewBurikoScheme()},
		PackFile: {scheme.NewPackFileScheme()},
	}
	for _, g := range scheme.ACV1Games {
		r[ACV1] = append(r[ACV1], scheme.NewACV1Scheme(g))
	}
	for _, g := range scheme.CPZ7Games {
		r[CPZ7] = append(r[CPZ7], scheme.NewCPZ7Scheme(g))
	}
	return r
}

// universal はタイトルに依存せず1つのスキームで読める形式です
var universal = map[Archive]bool{
	GXP:      true,
	PF6:      true,
	PF8:      true,
	Buriko:   true,
	PackFile: true,
}

// Parse は先頭バイトから形式を判別します。短いバッファや空のバッファでも安全です。
func Parse(buf []byte) Archive {
	for _, s := range signatures {
		if bytes.HasPrefix(buf, s.sig) {
			return s.family
		}
	}
	return NotRecognized
}

// String は形式名を返します
func (a Archive) String() string {
	if name, ok := familyNames[a]; ok {
		return name
	}
	return "Unknown"
}

// IsUniversal は形式がタイトルに依存しない場合に true を返します
func (a Archive) IsUniversal() bool {
	return universal[a]
}

// Schemes は形式に対応するスキームの一覧を返します。NotRecognized の場合は空です。
func (a Archive) Schemes() []scheme.Scheme {
	return slices.Clone(registry[a])
}

// Families は登録されている形式を判定順に返します
func Families() []Archive {
	out := make([]Archive, 0, len(signatures))
	for _, s := range signatures {
		out = append(out, s.family)
	}
	return out
}

// AllSchemes は全形式のスキームを判定順に連結して返します。
// 形式を判別できなかったときに利用者に選ばせるための一覧です。
func AllSchemes() []scheme.Scheme {
	var out []scheme.Scheme
	for _, f := range Families() {
		out = append(out, registry[f]...)
	}
	return out
}

// ResourceSchemes は単体リソースファイル用のスキームを返します
func ResourceSchemes() []scheme.Scheme {
	return []scheme.Scheme{scheme.NewResourceScheme()}
}
