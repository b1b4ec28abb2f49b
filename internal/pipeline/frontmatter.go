package pipeline

import (
	"bytes"
	"errors"
	"strings"

	"gopkg.in/yaml.v3"
)

var errMissingClosingDelimiter = errors.New("frontmatter: missing closing delimiter")

// splitFrontmatter separates YAML frontmatter ("---" delimited) from the body.
// Documents without frontmatter return nil and the full content.
func splitFrontmatter(content []byte) (frontmatter, body []byte, err error) {
	nl := "\n"
	if bytes.Contains(content, []byte("\r\n")) {
		nl = "\r\n"
	}
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, nil
	}
	rest := content[len(open):]
	if bytes.HasPrefix(rest, open) {
		return []byte{}, rest[len(open):], nil
	}
	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(rest, closeSeq)
	if idx < 0 {
		if bytes.HasSuffix(rest, []byte(nl+"---")) {
			return rest[:len(rest)-len(nl+"---")+len(nl)], nil, nil
		}
		return nil, nil, errMissingClosingDelimiter
	}
	return rest[:idx+len(nl)], rest[idx+len(closeSeq):], nil
}

// pageMeta is the subset of frontmatter the pipeline reads.
type pageMeta struct {
	Title string `yaml:"title"`
	Draft bool   `yaml:"draft"`
}

func parseMeta(frontmatter []byte) (pageMeta, error) {
	var m pageMeta
	if len(bytes.TrimSpace(frontmatter)) == 0 {
		return m, nil
	}
	if err := yaml.Unmarshal(frontmatter, &m); err != nil {
		return m, err
	}
	m.Title = strings.TrimSpace(m.Title)
	return m, nil
}
