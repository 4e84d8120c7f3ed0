package codec

import (
	"encoding/json"
	"fmt"

	"github.com/hamba/avro/v2"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/jhump/protoreflect/desc"
	protoparse "github.com/jhump/protoreflect/desc/protoparse"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
)

// encodePayload marshals payload to bytes for the given format and schema
// text. JSON ignores schemaText (payload already matches the registered
// shape by construction); Avro parses schemaText on every call, whether
// the schema came from the cache or the registry, and uses the parsed
// avro.Schema for the single encode.
func encodePayload(format domain.SchemaFormat, schemaText string, payload interface{}) ([]byte, error) {
	switch format {
	case domain.FormatJSON:
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("json marshal: %w", err)
		}
		return b, nil

	case domain.FormatAvro:
		schema, err := avro.Parse(schemaText)
		if err != nil {
			return nil, fmt.Errorf("parse avro schema: %w", err)
		}
		b, err := avro.Marshal(schema, payload)
		if err != nil {
			return nil, fmt.Errorf("avro marshal: %w", err)
		}
		return b, nil

	case domain.FormatProtobuf:
		msg, ok := payload.(proto.Message)
		if !ok {
			return nil, fmt.Errorf("payload does not implement proto.Message")
		}
		b, err := proto.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("protobuf marshal: %w", err)
		}
		return b, nil

	default:
		return nil, fmt.Errorf("unsupported schema format %q", format)
	}
}

// decodePayload unmarshals raw payload bytes (with the wire header and, for
// protobuf, the message-index array already stripped) into target.
func decodePayload(format domain.SchemaFormat, schemaText string, raw []byte, target interface{}) error {
	switch format {
	case domain.FormatJSON:
		if err := json.Unmarshal(raw, target); err != nil {
			return fmt.Errorf("json unmarshal: %w", err)
		}
		return nil

	case domain.FormatAvro:
		schema, err := avro.Parse(schemaText)
		if err != nil {
			return fmt.Errorf("parse avro schema: %w", err)
		}
		if err := avro.Unmarshal(schema, raw, target); err != nil {
			return fmt.Errorf("avro unmarshal: %w", err)
		}
		return nil

	case domain.FormatProtobuf:
		return decodeProtobuf(schemaText, raw, target)

	default:
		return fmt.Errorf("unsupported schema format %q", format)
	}
}

// decodeProtobuf handles the DynamicMessage case (spec §4.1, §4.9): when
// the target is a non-nil *dynamicpb.Message, the schema's .proto text is
// compiled on the fly via jhump/protoreflect, the bytes are unmarshaled
// against its descriptor and the result is merged into target. A concrete
// generated proto.Message target skips compilation entirely. A nil target
// is rejected. *dynamicpb.Message also implements proto.Message, so it is
// matched first.
func decodeProtobuf(schemaText string, raw []byte, target interface{}) error {
	if dynTarget, ok := target.(*dynamicpb.Message); ok && dynTarget != nil {
		md, err := compileDynamicMessageDescriptor(schemaText)
		if err != nil {
			return err
		}
		dyn := dynamicpb.NewMessage(md)
		if err := proto.Unmarshal(raw, dyn); err != nil {
			return fmt.Errorf("protobuf unmarshal (dynamic): %w", err)
		}
		proto.Merge(dynTarget, dyn)
		return nil
	}

	if msg, ok := target.(proto.Message); ok {
		if err := proto.Unmarshal(raw, msg); err != nil {
			return fmt.Errorf("protobuf unmarshal: %w", err)
		}
		return nil
	}
	return fmt.Errorf("protobuf target must be a proto.Message or *dynamicpb.Message")
}

func compileDynamicMessageDescriptor(schemaText string) (protoreflect.MessageDescriptor, error) {
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{
			"schema.proto": schemaText,
		}),
	}
	fds, err := parser.ParseFiles("schema.proto")
	if err != nil {
		return nil, fmt.Errorf("parse protobuf schema: %w", err)
	}
	if len(fds) == 0 {
		return nil, fmt.Errorf("protobuf schema produced no file descriptor")
	}
	msgDescs := fds[0].GetMessageTypes()
	if len(msgDescs) == 0 {
		return nil, fmt.Errorf("protobuf schema declares no message types")
	}
	return findMessage(msgDescs, domain.DynamicMessageRecordName, fds[0])
}

func findMessage(msgs []*desc.MessageDescriptor, name string, fd *desc.FileDescriptor) (protoreflect.MessageDescriptor, error) {
	for _, m := range msgs {
		if m.GetName() == name {
			return m.UnwrapMessage(), nil
		}
	}
	// Fall back to the first declared message when the schema uses its own
	// record name rather than the DynamicMessage convention.
	if len(msgs) > 0 {
		return msgs[0].UnwrapMessage(), nil
	}
	return nil, fmt.Errorf("message %q not found in %s", name, fd.GetName())
}
