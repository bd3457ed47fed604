package graph

import (
	"encoding/json"

	gc "gopkg.in/check.v1"
	"golang.org/x/xerrors"
)

var _ = gc.Suite(new(ValueTestSuite))

type ValueTestSuite struct{}

func (s *ValueTestSuite) TestDecodeInfersVariant(c *gc.C) {
	cases := []struct {
		in  string
		exp GunValue
	}{
		{in: `null`, exp: Null{}},
		{in: `true`, exp: Bit(true)},
		{in: `false`, exp: Bit(false)},
		{in: `7.5`, exp: Number(7.5)},
		{in: `"hi"`, exp: Text("hi")},
		{in: `{"#":5}`, exp: Link(5)},
		{in: `{}`, exp: Children{}},
		{in: `{"a":1,"b":{"c":true}}`, exp: Children{
			"a": Number(1),
			"b": Children{"c": Bit(true)},
		}},
		{in: `{"#":5,"extra":"x"}`, exp: Children{
			"#":     Number(5),
			"extra": Text("x"),
		}},
	}
	for i, tc := range cases {
		got, err := DecodeValue([]byte(tc.in))
		c.Assert(err, gc.IsNil, gc.Commentf("case %d: %s", i, tc.in))
		c.Assert(got, gc.DeepEquals, tc.exp, gc.Commentf("case %d: %s", i, tc.in))
	}
}

func (s *ValueTestSuite) TestDecodeRejectsInvalidShapes(c *gc.C) {
	for _, in := range []string{`[1,2]`, `{"#":"a/b"}`, `{"#":1.5}`} {
		_, err := DecodeValue([]byte(in))
		c.Assert(err, gc.NotNil, gc.Commentf("input %s", in))
		c.Assert(xerrors.Is(err, ErrInvalidValue), gc.Equals, true, gc.Commentf("input %s", in))
	}

	_, err := DecodeValue([]byte(`{broken`))
	c.Assert(err, gc.NotNil)
}

func (s *ValueTestSuite) TestMarshalChildrenOrdersKeys(c *gc.C) {
	payload, err := json.Marshal(Children{"b": Text("2"), "a": Text("1"), "c": Text("3")})
	c.Assert(err, gc.IsNil)
	c.Assert(string(payload), gc.Equals, `{"a":"1","b":"2","c":"3"}`)
}

func (s *ValueTestSuite) TestMarshalLink(c *gc.C) {
	payload, err := json.Marshal(Link(3))
	c.Assert(err, gc.IsNil)
	c.Assert(string(payload), gc.Equals, `{"#":3}`)
}

func (s *ValueTestSuite) TestRoundTrip(c *gc.C) {
	for i, value := range []GunValue{
		Null{},
		Bit(true),
		Number(1.5),
		Text("Fingolfin"),
		Link(12),
		Children{"x": Text("1"), "y": Children{"z": Number(2)}},
	} {
		payload, err := json.Marshal(value)
		c.Assert(err, gc.IsNil, gc.Commentf("value %d", i))
		got, err := DecodeValue(payload)
		c.Assert(err, gc.IsNil, gc.Commentf("value %d", i))
		c.Assert(got, gc.DeepEquals, value, gc.Commentf("value %d", i))
	}
}
