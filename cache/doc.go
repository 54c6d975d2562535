// Package cache implements a file-backed key/value cache used to keep
// scanner state (integrity-scan results, ignored files) between runs.
//
// # Store Structure
//
// Each named store maps to exactly one file in Config.DataDir named
// <FilePrefix><name><FileExt>, by default "sucuri-<name>.php":
//
//	<?php
//	// datastore=integrity;
//	// created_on=1760868000;
//	// updated_on=1760868000;
//	exit(0);
//	?>
//	abc123:{"file_path":"/a.php","file_status":"modified"}
//	def456:{"file_path":"/b.php","file_status":"added"}
//
// The header lines are "// name=value;". The PHP block stops execution
// if a misconfigured web server ever executes the file directly.
// Entries are "key:<json>" lines appended in write order.
//
// # Semantics
//
// Set appends a line and never touches the header. Keys are not unique
// in the file: when reading, the first occurrence of a key wins.
// Delete, Override and Compact rewrite the whole file, dropping
// duplicates and bumping updated_on.
//
// Lifetimes passed to Get and GetAll are measured from updated_on, so
// all entries of a store share one expiration clock.
//
//	s := cache.Open(conf, "integrity", true)
//	err := s.Set("abc123", map[string]string{"file_path": "/a.php"})
//	v, err := s.Get("abc123", time.Hour)
//	if errors.Is(err, cache.ErrNotFound) {
//	    // miss or expired
//	}
//
// # Thread Safety
//
// There is no locking. Concurrent appends may interleave at line
// granularity and a rewrite racing with an append can lose the append.
// Callers that need more must serialize access per store name.
package cache
