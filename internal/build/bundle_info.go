package build

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// ExtensionStat aggregates output files sharing an extension.
type ExtensionStat struct {
	Extension string
	Files     int
	Bytes     int64
}

// BundleSummary describes the emitted output tree.
type BundleSummary struct {
	Files       int
	Bytes       int64
	ByExtension []ExtensionStat
}

// String renders the summary the way the build log prints it.
func (s BundleSummary) String() string {
	var b strings.Builder
	b.WriteString(humanize.Comma(int64(s.Files)))
	b.WriteString(" files, ")
	b.WriteString(humanize.Bytes(uint64(s.Bytes)))
	for _, ext := range s.ByExtension {
		b.WriteString("\n  ")
		b.WriteString(ext.Extension)
		b.WriteString(": ")
		b.WriteString(humanize.Comma(int64(ext.Files)))
		b.WriteString(" (")
		b.WriteString(humanize.Bytes(uint64(ext.Bytes)))
		b.WriteString(")")
	}
	return b.String()
}

// SummarizeOutput walks dir and totals regular files by extension. Extensions
// are sorted by size, largest first.
func SummarizeOutput(dir string) (BundleSummary, error) {
	var sum BundleSummary
	byExt := map[string]*ExtensionStat{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == "" {
			ext = "(none)"
		}
		st, ok := byExt[ext]
		if !ok {
			st = &ExtensionStat{Extension: ext}
			byExt[ext] = st
		}
		st.Files++
		st.Bytes += info.Size()
		sum.Files++
		sum.Bytes += info.Size()
		return nil
	})
	if err != nil {
		return BundleSummary{}, err
	}
	for _, st := range byExt {
		sum.ByExtension = append(sum.ByExtension, *st)
	}
	sort.Slice(sum.ByExtension, func(i, j int) bool {
		a, b := sum.ByExtension[i], sum.ByExtension[j]
		if a.Bytes != b.Bytes {
			return a.Bytes > b.Bytes
		}
		return a.Extension < b.Extension
	})
	return sum, nil
}
