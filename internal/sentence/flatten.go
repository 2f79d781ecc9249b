package sentence

// Flatten expands records into one row per distinct meaning.
//
// Every record is validated before any row is emitted, so a schema
// violation never leaves a half-flattened table. Row order is record
// order, then meaning order within the record; Seq numbers the rows
// 0..n-1 over the whole table.
func Flatten(records []Record) ([]FlatRow, error) {
	for i, record := range records {
		if err := record.Validate(); err != nil {
			return nil, &SchemaMismatchError{Record: i, Err: err}
		}
	}

	var rows []FlatRow
	for _, record := range records {
		for i := 0; i < record.Meanings(); i++ {
			rows = append(rows, FlatRow{
				Seq:            len(rows),
				SourceWord:     record.SourceWords[i],
				TargetWord:     record.TargetWords[i],
				SourceSentence: record.SourceSentences[i],
				TargetSentence: record.TargetSentences[i],
			})
		}
	}

	return rows, nil
}
