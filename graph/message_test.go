package graph

import (
	"encoding/json"

	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(MessageTestSuite))

type MessageTestSuite struct{}

func (s *MessageTestSuite) TestMsgIDFormat(c *gc.C) {
	id := newMsgID()
	c.Assert(id, gc.Matches, "^[A-Za-z0-9]{8}$")
	c.Assert(newMsgID(), gc.Not(gc.Equals), id)
}

func (s *MessageTestSuite) TestGetMessageForRootLevelVertex(c *gc.C) {
	frame := newGetMessage(nil, "Meneldor")

	var env struct {
		ID  string            `json:"#"`
		Get map[string]string `json:"get"`
	}
	c.Assert(json.Unmarshal([]byte(frame), &env), gc.IsNil)
	c.Assert(env.ID, gc.Matches, "^[A-Za-z0-9]{8}$")
	c.Assert(env.Get, gc.DeepEquals, map[string]string{"#": "Meneldor"})
}

func (s *MessageTestSuite) TestGetMessageForNestedVertex(c *gc.C) {
	frame := newGetMessage([]string{"a", "b"}, "c")

	var env struct {
		Get map[string]string `json:"get"`
	}
	c.Assert(json.Unmarshal([]byte(frame), &env), gc.IsNil)
	c.Assert(env.Get, gc.DeepEquals, map[string]string{"#": "a/b", ".": "c"})
}

func (s *MessageTestSuite) TestPutMessageShape(c *gc.C) {
	frame := newPutMessage([]string{"a", "b"}, "c", Text("v"), 42)

	var env struct {
		ID  string                                `json:"#"`
		Put map[string]map[string]json.RawMessage `json:"put"`
	}
	c.Assert(json.Unmarshal([]byte(frame), &env), gc.IsNil)
	c.Assert(env.ID, gc.Matches, "^[A-Za-z0-9]{8}$")
	c.Assert(env.Put, gc.HasLen, 2)

	leaf := env.Put["a/b"]
	c.Assert(leaf, gc.NotNil)
	var leafMeta wirePutMeta
	c.Assert(json.Unmarshal(leaf["_"], &leafMeta), gc.IsNil)
	c.Assert(leafMeta.Soul, gc.Equals, "a/b")
	c.Assert(leafMeta.State, gc.DeepEquals, map[string]float64{"c": 42})
	c.Assert(string(leaf["c"]), gc.Equals, `"v"`)

	back := env.Put["a"]
	c.Assert(back, gc.NotNil)
	var backMeta wirePutMeta
	c.Assert(json.Unmarshal(back["_"], &backMeta), gc.IsNil)
	c.Assert(backMeta.Soul, gc.Equals, "a")
	c.Assert(backMeta.State, gc.DeepEquals, map[string]float64{"b": 42})
	var link map[string]string
	c.Assert(json.Unmarshal(back["b"], &link), gc.IsNil)
	c.Assert(link, gc.DeepEquals, map[string]string{"#": "a/b"})
}

func (s *MessageTestSuite) TestPutMessageRoundTrip(c *gc.C) {
	frame := newPutMessage([]string{"a"}, "x", Text("v"), 42)

	var env struct {
		Put map[string]json.RawMessage `json:"put"`
	}
	c.Assert(json.Unmarshal([]byte(frame), &env), gc.IsNil)

	entry, err := parsePutEntry(env.Put["a"])
	c.Assert(err, gc.IsNil)
	c.Assert(entry.meta.Soul, gc.Equals, "a")
	c.Assert(entry.meta.State["x"], gc.Equals, 42.0)

	value, err := DecodeValue(entry.fields["x"])
	c.Assert(err, gc.IsNil)
	c.Assert(value, gc.DeepEquals, Text("v"))
}

func (s *MessageTestSuite) TestSplitSoul(c *gc.C) {
	c.Assert(splitSoul(""), gc.IsNil)
	c.Assert(splitSoul("a"), gc.DeepEquals, []string{"a"})
	c.Assert(splitSoul("a/b/c"), gc.DeepEquals, []string{"a", "b", "c"})
	c.Assert(splitSoul("/a//b/"), gc.DeepEquals, []string{"a", "b"})
}
