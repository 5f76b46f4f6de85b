package yamldoc

// Setter mutates a loaded document.
type Setter func(*Document) error

// SetField returns a Setter that overwrites fieldPath with value.
func SetField(fieldPath string, value interface{}) Setter {
	return func(d *Document) error {
		return d.Set(fieldPath, value)
	}
}

// Update loads the document at path, applies the setters in order and writes
// it back. Nothing is written if any setter fails.
func Update(path string, setters ...Setter) error {
	doc, err := Load(path)
	if err != nil {
		return err
	}
	for _, setter := range setters {
		if err := setter(doc); err != nil {
			return err
		}
	}
	return doc.Save(path)
}
