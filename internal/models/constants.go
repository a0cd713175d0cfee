package models

const (
	// Injection patterns stripped from incoming queries.
	ScriptTagRegex = `(?i)<script.*?>.*?</script>`
	SQLVerbRegex   = `(?i)(union|select|drop|delete|insert|update)\s+`
	CodeCallRegex  = `(?i)(eval|exec|system|shell_exec)\s*\(`

	// Bracketed references the model may emit in answers.
	ReferenceRegex = `\[Image:\s*([^\]]+)\]|\[Table:\s*([^\]]+)\]`
	RefNameRegex   = `^[\w\-. ]+$`

	MaxQueryLength   = 2000
	GroundingMinimum = 0.10
)

// DenylistKeywords reject a query outright when present in any casing.
var DenylistKeywords = []string{
	"password", "secret", "private key", "confidential",
	"hack", "exploit", "malware", "virus",
}

var AnswerPromptTemplate = `Context from documents:
%s

Question: %s

Instructions:
- Answer ONLY using the above context.
- If information is not present, say "I don't have enough information".
- Be concise and accurate.
- Cite relevant sections when possible.

Answer:
`
