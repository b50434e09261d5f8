package xmlrpc

// Element and attribute names of the XML-RPC grammar (§4.2). Kept in one
// place since both the parser and the serializer need to agree on them.
const (
	elMethodCall     = "methodCall"
	elMethodName     = "methodName"
	elMethodResponse = "methodResponse"
	elParams         = "params"
	elParam          = "param"
	elValue          = "value"
	elFault          = "fault"

	elInt      = "int"
	elI4       = "i4"
	elBoolean  = "boolean"
	elDouble   = "double"
	elDateTime = "dateTime.iso8601"
	elString   = "string"
	elBase64   = "base64"
	elArray    = "array"
	elData     = "data"
	elStruct   = "struct"
	elMember   = "member"
	elName     = "name"
	elNil      = "nil"

	faultCodeKey = "faultCode"
	faultStrKey  = "faultString"
)
