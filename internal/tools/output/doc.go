// Package output filters Redmine API responses before they reach an LLM.
//
// Redmine responses are large and generically shaped. A filter configuration
// supplied with a request (the mcp_filter argument, either a preset name or
// an object) prunes, truncates and bounds the decoded JSON tree at every
// depth without changing its shape.
//
// # Options
//
//   - include_fields / exclude_fields select keys; include wins
//   - remove_empty drops nulls, blank strings and empty collections
//   - remove_custom_fields / keep_custom_fields control custom_fields
//   - max_description_length truncates description, notes and text
//   - max_array_items bounds generic arrays
//   - journals.code_review_only keeps only code-review journal entries
//
// # Safety
//
// [Processor.Apply] never modifies its input. Error responses pass through
// untouched. An invalid configuration leaves the body alone but still marks
// the envelope as filtered, and any failure while filtering returns the
// original envelope. Values under api_key and password are masked on the
// filtered path.
//
// # Usage Example
//
//	raw, err := output.ResolveFilter("essential_issues")
//	if err != nil {
//	    return err
//	}
//	env = processor.Apply(ctx, env, raw)
package output
