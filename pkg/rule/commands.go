package rule

import (
	"encoding/json"
	"strings"

	"github.com/regraft/regraft/pkg/attrs"
	rerr "github.com/regraft/regraft/pkg/errors"
	"github.com/regraft/regraft/pkg/graph"
)

// Transformation script mini-language. A script is a sequence of
// statements, each terminated by ".", that compiles into rule edits on an
// identity rule over a pattern:
//
//	CLONE a AS a1.
//	DELETE_NODE b.
//	DELETE_EDGE a b.
//	ADD_NODE c {"kind": "fresh"}.
//	ADD_EDGE a c.
//	MERGE [a, b] AS ab.
//	ADD_NODE_ATTRS a {"tag": ["x", "y"]}.
//	DELETE_NODE_ATTRS a {"tag": "x"}.
//	UPDATE_EDGE_ATTRS a b {"w": 2}.
//
// Keywords are case-insensitive. Attribute dictionaries are JSON objects
// whose values may be scalars or arrays (normalized to sets). Node lists
// are bracketed and comma-separated. MERGE accepts optional trailing
// "METHOD union" and "EDGES union" clauses; union is the only supported
// method for either.

// FromCommands builds a rule by compiling a transformation script against
// a pattern graph.
func FromCommands(pattern *graph.Graph, script string) (*Rule, error) {
	r := FromTransform(pattern)
	stmts, err := splitStatements(script)
	if err != nil {
		return nil, err
	}
	for _, s := range stmts {
		if err := r.execStatement(s); err != nil {
			return nil, rerr.Wrap(rerr.ErrCodeRuleInvalidScript, err, "in statement %q", s)
		}
	}
	return r, nil
}

// splitStatements cuts a script at "." separators that sit outside JSON
// objects, brackets, and string literals. Empty statements are dropped.
func splitStatements(script string) ([]string, error) {
	var out []string
	var buf strings.Builder
	depth := 0
	inStr := false
	escaped := false
	for _, c := range script {
		if inStr {
			buf.WriteRune(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
			buf.WriteRune(c)
		case '{', '[':
			depth++
			buf.WriteRune(c)
		case '}', ']':
			depth--
			if depth < 0 {
				return nil, rerr.New(rerr.ErrCodeRuleInvalidScript, "unbalanced brackets in script")
			}
			buf.WriteRune(c)
		case '.':
			if depth == 0 {
				if s := strings.TrimSpace(buf.String()); s != "" {
					out = append(out, s)
				}
				buf.Reset()
			} else {
				buf.WriteRune(c)
			}
		default:
			buf.WriteRune(c)
		}
	}
	if inStr || depth != 0 {
		return nil, rerr.New(rerr.ErrCodeRuleInvalidScript, "unterminated statement in script")
	}
	if s := strings.TrimSpace(buf.String()); s != "" {
		return nil, rerr.New(rerr.ErrCodeRuleInvalidScript, "statement %q is missing its terminating period", s)
	}
	return out, nil
}

func (r *Rule) execStatement(stmt string) error {
	toks, err := tokenize(stmt)
	if err != nil {
		return err
	}
	if len(toks) == 0 {
		return rerr.New(rerr.ErrCodeRuleInvalidScript, "empty statement")
	}
	cmd := strings.ToUpper(toks[0].text)
	args := toks[1:]

	switch cmd {
	case "CLONE":
		var ids []string
		var err error
		if len(args) == 1 {
			ids, err = wordArgs(args, 1, "", 0)
			ids = append(ids, "")
		} else {
			ids, err = wordArgs(args, 1, "AS", 1)
		}
		if err != nil {
			return err
		}
		_, _, err = r.InjectCloneNode(ids[0], ids[1])
		return err

	case "DELETE_NODE":
		ids, err := wordArgs(args, 1, "", 0)
		if err != nil {
			return err
		}
		return r.InjectRemoveNode(ids[0])

	case "DELETE_EDGE":
		ids, err := wordArgs(args, 2, "", 0)
		if err != nil {
			return err
		}
		return r.InjectRemoveEdge(ids[0], ids[1])

	case "ADD_NODE":
		id, a, err := wordAndAttrs(args, 1)
		if err != nil {
			return err
		}
		return r.InjectAddNode(id[0], a)

	case "ADD_EDGE":
		id, a, err := wordAndAttrs(args, 2)
		if err != nil {
			return err
		}
		return r.InjectAddEdge(id[0], id[1], a)

	case "MERGE":
		return r.execMerge(args)

	case "ADD_NODE_ATTRS":
		id, a, err := wordAndAttrs(args, 1)
		if err != nil {
			return err
		}
		return r.InjectAddNodeAttrs(id[0], a)

	case "DELETE_NODE_ATTRS":
		id, a, err := wordAndAttrs(args, 1)
		if err != nil {
			return err
		}
		return r.InjectRemoveNodeAttrs(id[0], a)

	case "UPDATE_NODE_ATTRS":
		id, a, err := wordAndAttrs(args, 1)
		if err != nil {
			return err
		}
		return r.InjectUpdateNodeAttrs(id[0], a)

	case "ADD_EDGE_ATTRS":
		id, a, err := wordAndAttrs(args, 2)
		if err != nil {
			return err
		}
		return r.InjectAddEdgeAttrs(id[0], id[1], a)

	case "DELETE_EDGE_ATTRS":
		id, a, err := wordAndAttrs(args, 2)
		if err != nil {
			return err
		}
		return r.InjectRemoveEdgeAttrs(id[0], id[1], a)

	case "UPDATE_EDGE_ATTRS":
		id, a, err := wordAndAttrs(args, 2)
		if err != nil {
			return err
		}
		return r.InjectUpdateEdgeAttrs(id[0], id[1], a)
	}
	return rerr.New(rerr.ErrCodeRuleInvalidScript, "unknown command %q", toks[0].text)
}

// execMerge handles MERGE [a, b, ...] AS z [METHOD union] [EDGES union].
func (r *Rule) execMerge(args []token) error {
	if len(args) == 0 || args[0].kind != tokList {
		return rerr.New(rerr.ErrCodeRuleInvalidScript, "MERGE expects a bracketed node list")
	}
	nodes := splitList(args[0].text)
	if len(nodes) < 2 {
		return rerr.New(rerr.ErrCodeRuleInvalidScript, "MERGE needs at least two nodes")
	}
	rest := args[1:]
	newID := ""
	for len(rest) > 0 {
		if rest[0].kind != tokWord {
			return rerr.New(rerr.ErrCodeRuleInvalidScript, "unexpected %q in MERGE", rest[0].text)
		}
		switch strings.ToUpper(rest[0].text) {
		case "AS":
			if len(rest) < 2 || rest[1].kind != tokWord {
				return rerr.New(rerr.ErrCodeRuleInvalidScript, "AS expects a node id")
			}
			newID = rest[1].text
			rest = rest[2:]
		case "METHOD", "EDGES":
			if len(rest) < 2 || !strings.EqualFold(rest[1].text, "union") {
				return rerr.New(rerr.ErrCodeRuleInvalidScript,
					"%s supports only \"union\"", strings.ToUpper(rest[0].text))
			}
			rest = rest[2:]
		default:
			return rerr.New(rerr.ErrCodeRuleInvalidScript, "unexpected %q in MERGE", rest[0].text)
		}
	}
	_, err := r.InjectMergeNodes(nodes, newID)
	return err
}

// ---------------------------------------------------------------------------
// Tokenizer
// ---------------------------------------------------------------------------

type tokenKind int

const (
	tokWord tokenKind = iota
	tokList           // bracketed, text without the brackets
	tokJSON           // braced, raw JSON including braces
)

type token struct {
	kind tokenKind
	text string
}

func tokenize(stmt string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(stmt) {
		switch c := stmt[i]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '[':
			end, err := matchBracket(stmt, i, '[', ']')
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{tokList, stmt[i+1 : end]})
			i = end + 1
		case c == '{':
			end, err := matchBracket(stmt, i, '{', '}')
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{tokJSON, stmt[i : end+1]})
			i = end + 1
		default:
			j := i
			for j < len(stmt) && !strings.ContainsRune(" \t\n\r[{", rune(stmt[j])) {
				j++
			}
			toks = append(toks, token{tokWord, stmt[i:j]})
			i = j
		}
	}
	return toks, nil
}

func matchBracket(s string, start int, open, close byte) (int, error) {
	depth := 0
	inStr := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, rerr.New(rerr.ErrCodeRuleInvalidScript, "unbalanced %q", string(open))
}

func splitList(body string) []string {
	var out []string
	for _, part := range strings.Split(body, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// wordArgs expects count word tokens, an optional keyword, and after more
// word tokens. Returns all words in order.
func wordArgs(args []token, before int, keyword string, after int) ([]string, error) {
	want := before + after
	var out []string
	rest := args
	for i := 0; i < before; i++ {
		if len(rest) == 0 || rest[0].kind != tokWord {
			return nil, rerr.New(rerr.ErrCodeRuleInvalidScript, "expected a node id")
		}
		out = append(out, rest[0].text)
		rest = rest[1:]
	}
	if keyword != "" {
		if len(rest) == 0 || !strings.EqualFold(rest[0].text, keyword) {
			return nil, rerr.New(rerr.ErrCodeRuleInvalidScript, "expected keyword %q", keyword)
		}
		rest = rest[1:]
		for i := 0; i < after; i++ {
			if len(rest) == 0 || rest[0].kind != tokWord {
				return nil, rerr.New(rerr.ErrCodeRuleInvalidScript, "expected a node id after %q", keyword)
			}
			out = append(out, rest[0].text)
			rest = rest[1:]
		}
	}
	if len(rest) != 0 {
		return nil, rerr.New(rerr.ErrCodeRuleInvalidScript, "trailing tokens after statement")
	}
	if len(out) != want {
		return nil, rerr.New(rerr.ErrCodeRuleInvalidScript, "expected %d node ids", want)
	}
	return out, nil
}

// wordAndAttrs expects count word tokens plus an optional trailing JSON
// attribute dictionary.
func wordAndAttrs(args []token, count int) ([]string, attrs.Dict, error) {
	var out []string
	rest := args
	for i := 0; i < count; i++ {
		if len(rest) == 0 || rest[0].kind != tokWord {
			return nil, nil, rerr.New(rerr.ErrCodeRuleInvalidScript, "expected a node id")
		}
		out = append(out, rest[0].text)
		rest = rest[1:]
	}
	a := attrs.Dict{}
	if len(rest) > 0 {
		if rest[0].kind != tokJSON {
			return nil, nil, rerr.New(rerr.ErrCodeRuleInvalidScript, "expected a JSON attribute dictionary")
		}
		var raw map[string]any
		if err := json.Unmarshal([]byte(rest[0].text), &raw); err != nil {
			return nil, nil, rerr.Wrap(rerr.ErrCodeRuleInvalidScript, err, "invalid attribute dictionary")
		}
		var err error
		a, err = attrs.Normalize(raw)
		if err != nil {
			return nil, nil, err
		}
		rest = rest[1:]
	}
	if len(rest) != 0 {
		return nil, nil, rerr.New(rerr.ErrCodeRuleInvalidScript, "trailing tokens after statement")
	}
	return out, a, nil
}
