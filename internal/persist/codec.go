package persist

import (
	"fmt"

	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	fieldName   = "name"
	fieldValues = "values"
	fieldNodes  = "nodes"
	fieldKey    = "k"
	fieldValue  = "v"
)

// Encoding selects the on-disk representation.
type Encoding int

const (
	// Binary is the protobuf wire format.
	Binary Encoding = iota
	// Text is protobuf text format, readable in save-file diffs.
	Text
)

// ToStruct converts a node tree into a protobuf Struct.
func ToStruct(n *Node) *structpb.Struct {
	values := make([]*structpb.Value, 0, len(n.values))
	for _, v := range n.values {
		values = append(values, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			fieldKey:   structpb.NewStringValue(v.Key),
			fieldValue: structpb.NewStringValue(v.Value),
		}}))
	}
	children := make([]*structpb.Value, 0, len(n.children))
	for _, c := range n.children {
		children = append(children, structpb.NewStructValue(ToStruct(c)))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldName:   structpb.NewStringValue(n.Name),
		fieldValues: structpb.NewListValue(&structpb.ListValue{Values: values}),
		fieldNodes:  structpb.NewListValue(&structpb.ListValue{Values: children}),
	}}
}

// FromStruct rebuilds a node tree produced by ToStruct.
func FromStruct(s *structpb.Struct) (*Node, error) {
	if s == nil {
		return nil, fmt.Errorf("decode node: nil struct")
	}
	n := NewNode(s.GetFields()[fieldName].GetStringValue())
	for i, v := range s.GetFields()[fieldValues].GetListValue().GetValues() {
		kv := v.GetStructValue()
		if kv == nil {
			return nil, fmt.Errorf("decode node %q: value %d is not a struct", n.Name, i)
		}
		n.AddValue(kv.GetFields()[fieldKey].GetStringValue(), kv.GetFields()[fieldValue].GetStringValue())
	}
	for i, c := range s.GetFields()[fieldNodes].GetListValue().GetValues() {
		cs := c.GetStructValue()
		if cs == nil {
			return nil, fmt.Errorf("decode node %q: child %d is not a struct", n.Name, i)
		}
		child, err := FromStruct(cs)
		if err != nil {
			return nil, err
		}
		n.AppendNode(child)
	}
	return n, nil
}

// Marshal encodes a node tree.
func Marshal(n *Node, enc Encoding) ([]byte, error) {
	st := ToStruct(n)
	switch enc {
	case Text:
		return prototext.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(st)
	default:
		return proto.MarshalOptions{Deterministic: true}.Marshal(st)
	}
}

// Unmarshal decodes data produced by Marshal with the same encoding.
func Unmarshal(data []byte, enc Encoding) (*Node, error) {
	var st structpb.Struct
	var err error
	switch enc {
	case Text:
		err = prototext.Unmarshal(data, &st)
	default:
		err = proto.Unmarshal(data, &st)
	}
	if err != nil {
		return nil, fmt.Errorf("decode node: %w", err)
	}
	return FromStruct(&st)
}
