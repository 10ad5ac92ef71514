package models

const (
	// ChunkSize is the fixed segment length, in characters, used when
	// splitting normalized content. Changing it invalidates nothing already
	// stored, but segmentation is only deterministic while it stays a
	// constant.
	ChunkSize = 1200

	// TopK is the number of nearest neighbours fetched per query.
	TopK = 4

	// MaxImageQueries bounds the visual query plan.
	MaxImageQueries = 3

	// PlannerContextLimit is how much assembled context, in characters, the
	// visual query planner sees.
	PlannerContextLimit = 2000

	// NoContextSentinel stands in for the context string when retrieval
	// returns nothing.
	NoContextSentinel = "No document context found."

	// DefinitionFailure is returned by the definition helper when the
	// generation call fails.
	DefinitionFailure = "Definition lookup failed."

	// ProcessingErrorPrefix starts the answer text of a degraded envelope.
	ProcessingErrorPrefix = "Processing Error: "
)

const (
	// VisionInstruction asks the vision capability for a verbatim
	// transcription followed by a layout description, in a fixed
	// two-section format.
	VisionInstruction = "1. Transcribe ALL visible text in this image exactly as it appears. \n2. Describe the layout and visual elements in detail.\n\nOutput format:\nOCR TRANSCRIPTION:\n[Text here]\n\nVISUAL DESCRIPTION:\n[Description here]"

	// SystemPrompt steers answer synthesis: prefer the supplied context,
	// fall back to general knowledge silently, never mention missing
	// context.
	SystemPrompt = `You are Lumina AI. Use Markdown.

INSTRUCTIONS:
1. Check if the provided CONTEXT is relevant to the USER QUESTION.
2. If relevant, answer using the context.
3. If the context is IRRELEVANT or EMPTY, ignore it and answer using your General Knowledge.
4. NEVER say "There is no mention in the context". Just answer the question directly.
`

	// UserTurnTemplate wraps context and query into the single user turn
	// sent to the generation capability.
	UserTurnTemplate = "CONTEXT:\n%s\n\nUSER QUESTION: %s"

	// PlannerPromptTemplate asks for exactly three "search text | relevance
	// label" lines.
	PlannerPromptTemplate = `You are an expert visual researcher. Generate 3 SPECIFIC image search queries based on:
QUERY: %s
CONTEXT fragments: %s

Format: exactly 3 lines, "Search Query | Why relevant".
`

	// DefinePromptTemplate is the single-turn prompt of the definition
	// helper.
	DefinePromptTemplate = "Define '%s' in 1-2 sentences within this context: %s"
)

// Metadata keys stored with every chunk.
const (
	MetaFilename  = "filename"
	MetaType      = "type"
	MetaSessionID = "session_id"
)
