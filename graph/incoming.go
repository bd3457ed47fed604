package graph

import (
	"bytes"
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// HandleMessage decodes a raw wire frame delivered by a transport adapter
// and applies it to the graph. A frame is a JSON object or a one-level
// array of objects; a frame may carry both a put and a get payload.
// Malformed frames (or malformed parts of frames) are dropped silently,
// processing whatever remains valid.
func (n *Node) HandleMessage(raw []byte) {
	n.handleMessage(raw, 0)
}

func (n *Node) handleMessage(raw []byte, depth int) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return
	}

	if trimmed[0] == '[' {
		if depth > 0 {
			n.graph.cfg.Logger.Debug("dropping nested array frame")
			return
		}
		var frames []json.RawMessage
		if err := json.Unmarshal(trimmed, &frames); err != nil {
			n.graph.cfg.Logger.Debug("dropping undecodable array frame")
			return
		}
		for _, frame := range frames {
			n.handleMessage(frame, depth+1)
		}
		return
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		n.graph.cfg.Logger.Debug("dropping undecodable frame")
		return
	}

	if putRaw, ok := envelope["put"]; ok {
		var put map[string]json.RawMessage
		if err := json.Unmarshal(putRaw, &put); err != nil {
			n.graph.cfg.Logger.Debug("dropping malformed put payload")
		} else {
			n.incomingPut(put)
		}
	}
	if getRaw, ok := envelope["get"]; ok {
		var get wireGet
		if err := json.Unmarshal(getRaw, &get); err != nil {
			n.graph.cfg.Logger.Debug("dropping malformed get payload")
		} else {
			n.incomingGet(&get)
		}
	}
}

// incomingPut merges a remote put payload into the graph. Each entry is
// addressed by its soul; missing vertices along the path are allocated.
// A field is applied only when its incoming timestamp is strictly greater
// than the addressed vertex's current one; ties and stale writes are
// dropped, which makes replaying a frame idempotent.
func (n *Node) incomingPut(put map[string]json.RawMessage) {
	for soul, rawEntry := range put {
		entry, err := parsePutEntry(rawEntry)
		if err != nil {
			n.graph.cfg.Logger.WithField("soul", soul).Debug("dropping malformed put entry")
			continue
		}

		node := n.Traverse(splitSoul(soul)...)
		for field, incomingAt := range entry.meta.State {
			if field == "" {
				continue
			}
			rawValue, ok := entry.fields[field]
			if !ok {
				continue
			}
			child := node.Get(field)
			if child.updatedAt() >= incomingAt {
				continue
			}
			value, err := DecodeValue(rawValue)
			if err != nil {
				n.graph.cfg.Logger.WithFields(logrus.Fields{
					"soul":  soul,
					"field": field,
				}).Debug("skipping undecodable put value")
				continue
			}
			child.putLocal(value, incomingAt)
		}
	}
}

// incomingGet answers a remote get request. The addressed vertex is
// resolved without allocating anything; when it has an observable value a
// put frame carrying that value and the stored timestamp is broadcast,
// otherwise the request produces no reply.
func (n *Node) incomingGet(get *wireGet) {
	keys := splitSoul(get.Soul)
	if get.Field != "" {
		keys = append(keys, get.Field)
	}
	if len(keys) == 0 {
		return
	}

	target, ok := n.Resolve(keys...)
	if !ok {
		return
	}
	value, ok := target.Value()
	if !ok {
		return
	}
	n.graph.cfg.Adapters.Broadcast(newPutMessage(target.path, target.key, value, target.updatedAt()))
}
