package domain

// ContentType classifies the dominant content of a section or chunk.
type ContentType string

// Recognised content types.
const (
	ContentTypeHeading   ContentType = "heading"
	ContentTypeParagraph ContentType = "paragraph"
	ContentTypeList      ContentType = "list"
	ContentTypeTable     ContentType = "table"
	ContentTypeCode      ContentType = "code"
	ContentTypeQuote     ContentType = "quote"
	ContentTypeFormula   ContentType = "formula"
	ContentTypeReference ContentType = "reference"
)

// IsValid returns true if the content type is recognised.
func (c ContentType) IsValid() bool {
	switch c {
	case ContentTypeHeading, ContentTypeParagraph, ContentTypeList, ContentTypeTable,
		ContentTypeCode, ContentTypeQuote, ContentTypeFormula, ContentTypeReference:
		return true
	default:
		return false
	}
}

// Section is a node in the document structure tree produced by the
// structure parser. The tree is ephemeral: it exists only long enough
// to drive chunking and is discarded afterwards.
type Section struct {
	// Title is the detected heading text for this section.
	Title string

	// Level is the heading depth (1 for the document title, 2+ below).
	Level int

	// Content is the body text belonging to this section, excluding
	// any subsection content.
	Content string

	// Subsections are nested sections in document order.
	Subsections []*Section

	// ContentType is the dominant content classification of the body.
	ContentType ContentType
}

// Position locates a chunk within its source document.
type Position struct {
	// DocumentIndex is the ordinal of the document within the ingestion set.
	DocumentIndex int

	// SectionIndex is the ordinal of the section within the document.
	SectionIndex int

	// ParagraphIndex is the ordinal of the first paragraph the chunk covers.
	ParagraphIndex int
}

// RelationType identifies the kind of edge between two chunks.
type RelationType string

// Recognised relationship types.
const (
	RelationSibling   RelationType = "sibling"
	RelationParent    RelationType = "parent"
	RelationChild     RelationType = "child"
	RelationReference RelationType = "reference"
)

// Relationship is a directed edge from one chunk to another, by ID.
type Relationship struct {
	// Type is the kind of relationship.
	Type RelationType

	// TargetID is the ID of the related chunk.
	TargetID string
}

// ChunkMetadata carries derived signals used for re-ranking and filtering.
type ChunkMetadata struct {
	// Keywords are the highest-frequency informative terms in the chunk.
	Keywords []string

	// Topics are matched domain topic labels.
	Topics []string

	// Complexity estimates structural complexity in [0,1].
	Complexity float64

	// Readability is a Flesch-style reading ease approximation in [0,100].
	Readability float64

	// Source is the originating document identifier (file name, URI).
	Source string
}

// Chunk represents a bounded, classified unit of document text prepared
// for embedding. Chunks are created once per chunking pass and are not
// persisted independently of their embedding.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// Content is the text content of this chunk.
	Content string

	// TokenCount is the estimated token count of Content.
	TokenCount int

	// ContentType is the heuristic classification of the content.
	ContentType ContentType

	// Importance is a relevance prior in [0.2, 1.0].
	Importance float64

	// Position locates the chunk within its document.
	Position Position

	// Metadata contains derived keyword/topic/readability signals.
	Metadata ChunkMetadata

	// Relationships are edges to related chunks by ID.
	Relationships []Relationship
}

// RelatedIDs returns the target IDs of all relationships of the given type.
func (c *Chunk) RelatedIDs(t RelationType) []string {
	var ids []string
	for _, rel := range c.Relationships {
		if rel.Type == t {
			ids = append(ids, rel.TargetID)
		}
	}
	return ids
}
