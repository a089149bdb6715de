// Package files locates line-item exports on disk for batch runs.
//
// Discovery expands a path given on the command line into the CSV and XLSX
// files to read; a directory of monthly exports is read as one dataset.
//
//	inputs, err := files.NewDiscovery(logger).ResolveInputs("exports/2024")
//	if err != nil {
//	    return err
//	}
//	for _, f := range inputs {
//	    ds, err := parser.ParseFile(f.Path)
//	    ...
//	}
package files
