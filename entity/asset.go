package entity

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"github.com/streambinder/hymnal/util"
)

// Asset is what a landing page resolves to
type Asset struct {
	DownloadURL string
	FileName    string
	PageTitle   string
}

type AssetPath struct {
	asset *Asset
	seq   int
	dir   string
}

const (
	AssetFormat = "ppt"
	TempSuffix  = ".tmp"
)

// Resolved reports whether the landing page
// yielded something that can be fetched
func (asset *Asset) Resolved() bool {
	return len(asset.DownloadURL) > 0
}

// Name returns the best known file name for the asset:
// the resolved one, or one derived from the page title,
// or fallback (e.g. "28장") when the page had no title either
func (asset *Asset) Name(fallback string) string {
	name := strings.Trim(strings.TrimSpace(asset.FileName), `"'`)
	if len(name) == 0 {
		stem := util.LegalizeFilename(asset.PageTitle)
		if len(stem) == 0 {
			stem = util.LegalizeFilename(fallback)
		}
		if len(stem) == 0 {
			stem = slug.Make(asset.DownloadURL)
		}
		name = stem + "." + AssetFormat
	}
	return util.LegalizeFilename(name)
}

func (asset *Asset) Path(dir string, seq int) AssetPath {
	return AssetPath{asset, seq, dir}
}

// Base is the sequenced file name: "{seq}. {name}"
func (assetPath AssetPath) Base(fallback string) string {
	return util.LegalizeFilename(fmt.Sprintf("%d. %s", assetPath.seq, assetPath.asset.Name(fallback)))
}

func (assetPath AssetPath) Final(fallback string) string {
	return filepath.Join(assetPath.dir, assetPath.Base(fallback))
}
