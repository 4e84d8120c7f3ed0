package domain

// SchemaFormat is the serialization format a registered schema describes.
type SchemaFormat string

const (
	FormatJSON     SchemaFormat = "JSON"
	FormatAvro     SchemaFormat = "AVRO"
	FormatProtobuf SchemaFormat = "PROTOBUF"
)

// DynamicMessageRecordName is the recordName used for subject naming when a
// protobuf payload's concrete type is not known statically.
const DynamicMessageRecordName = "DynamicMessage"

// RegisteredSchema is the core's view of a Schema Registry entry.
type RegisteredSchema struct {
	Subject    string
	SchemaID   int
	Format     SchemaFormat
	SchemaText string
}

// Subject builds the `{topic}-{recordName}` subject naming convention.
func Subject(topic, recordName string) string {
	return topic + "-" + recordName
}
