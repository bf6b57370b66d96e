// Package schema turns workflow documents into domain workflows.
//
// Intake runs in three stages: the YAML or JSON text is parsed into a generic
// document, the document is validated against the embedded JSON Schema, and
// the validated document is decoded into a domain.Workflow.
//
//	wf, err := schema.ParseYAML(data)
//	if err != nil {
//	    for _, e := range schema.ValidationErrors(err) {
//	        fmt.Println(e)
//	    }
//	}
//
// Check reports definition problems that a structurally valid document can
// still carry: duplicate node ids, jumps to unknown nodes, ignored rules and
// control actions that will never take effect.
package schema
