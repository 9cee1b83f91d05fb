package invoice

// Collection is an ordered container of Documents. Insertion order is kept
// because "next unapproved" navigation depends on it; export does not.
// Operations are idempotent on ID: adding a duplicate, or removing or
// looking up a missing ID, never duplicates state or fails.
type Collection struct {
	documents []*Document
}

// NewCollection creates an empty Collection.
func NewCollection() *Collection {
	return &Collection{}
}

// Add appends a document. A document with an already-present ID is ignored.
func (c *Collection) Add(doc *Document) {
	if doc == nil || c.Get(doc.ID()) != nil {
		return
	}
	c.documents = append(c.documents, doc)
}

// Remove deletes the document with the given ID. Missing IDs are a no-op.
func (c *Collection) Remove(id string) {
	for i, d := range c.documents {
		if d.ID() == id {
			c.documents = append(c.documents[:i], c.documents[i+1:]...)
			return
		}
	}
}

// Get returns the document with the given ID, or nil.
func (c *Collection) Get(id string) *Document {
	for _, d := range c.documents {
		if d.ID() == id {
			return d
		}
	}
	return nil
}

// All returns the documents in insertion order.
func (c *Collection) All() []*Document {
	out := make([]*Document, len(c.documents))
	copy(out, c.documents)
	return out
}

// Len returns the number of documents.
func (c *Collection) Len() int {
	return len(c.documents)
}

// HasName reports whether any document carries the given display name.
// Used to skip re-ingesting a file that is already present.
func (c *Collection) HasName(name string) bool {
	for _, d := range c.documents {
		if d.Name() == name {
			return true
		}
	}
	return false
}

// Unprocessed returns the documents that have no extracted data yet.
func (c *Collection) Unprocessed() []*Document {
	var out []*Document
	for _, d := range c.documents {
		if !d.HasData() {
			out = append(out, d)
		}
	}
	return out
}

// Approved returns the documents marked approved, in insertion order.
func (c *Collection) Approved() []*Document {
	var out []*Document
	for _, d := range c.documents {
		if d.Approved() {
			out = append(out, d)
		}
	}
	return out
}

// NextUnapproved returns the first document that is not approved yet, or nil.
func (c *Collection) NextUnapproved() *Document {
	for _, d := range c.documents {
		if !d.Approved() {
			return d
		}
	}
	return nil
}

// Reorder rearranges the collection to match the given ID order. Unknown
// IDs are ignored; documents not mentioned keep their relative order at the
// end.
func (c *Collection) Reorder(ids []string) {
	mentioned := make(map[string]bool, len(ids))
	var reordered []*Document
	for _, id := range ids {
		if d := c.Get(id); d != nil && !mentioned[id] {
			reordered = append(reordered, d)
			mentioned[id] = true
		}
	}
	for _, d := range c.documents {
		if !mentioned[d.ID()] {
			reordered = append(reordered, d)
		}
	}
	c.documents = reordered
}

// Clear removes all documents.
func (c *Collection) Clear() {
	c.documents = nil
}
