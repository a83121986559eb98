package llmutils

import "bytes"

var fence = []byte("```")

// CleanJSON returns the JSON value of a model reply by dropping the text
// before the first opening bracket and after the last closing one,
// as models reply like `Here you go: {json}`.
func CleanJSON(bs []byte) []byte {
	if start := firstIndex(bs, '{', '['); start >= 0 {
		bs = bs[start:]
	}
	if end := lastIndex(bs, '}', ']'); end >= 0 {
		bs = bs[:end+1]
	}
	return bs
}

// TrimFences returns the body of the first markdown code block of a reply,
// without the language tag, or the reply as is when it has no block.
func TrimFences(bs []byte) []byte {
	_, body, found := bytes.Cut(bs, fence)
	if !found {
		return bs
	}
	if nl := bytes.IndexByte(body, '\n'); nl >= 0 && firstIndex(body[:nl], '{', '[') < 0 {
		body = body[nl+1:]
	}
	if end := bytes.LastIndex(body, fence); end >= 0 {
		body = body[:end]
	}
	return bytes.TrimSpace(body)
}

func firstIndex(bs []byte, chars ...byte) int {
	idx := -1
	for _, c := range chars {
		if i := bytes.IndexByte(bs, c); i >= 0 && (idx < 0 || i < idx) {
			idx = i
		}
	}
	return idx
}

func lastIndex(bs []byte, chars ...byte) int {
	idx := -1
	for _, c := range chars {
		idx = max(idx, bytes.LastIndexByte(bs, c))
	}
	return idx
}
