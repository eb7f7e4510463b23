package oasbind

// Test-only exports for internal functions.
var (
	BindInput   = bindInput
	CoerceParam = coerceParam
	Dispatch    = dispatch
	InferStatus = inferStatus

	MergeParams     = mergeParams
	CheckPathParams = checkPathParams
	ContentSchema   = contentSchema
	SuccessSchemas  = successSchemas

	VersionFromOperationID = versionFromOperationID
	VersionFromFilename    = versionFromFilename

	ResponseSchemaFor = responseSchema
	SanitizeField     = sanitizeField
	DefaultValue      = defaultValue
)
