package site

// Migrate upgrades a document read from storage to the current schema
// version. Version 0 is the legacy unversioned shape written by the original
// editors; upgrading it only means filling the defaults Normalize applies at
// save time. Current documents pass through unchanged.
func Migrate(doc Document) Document {
	if doc.Schema >= SchemaVersion {
		return doc
	}
	Normalize(&doc)
	return doc
}
