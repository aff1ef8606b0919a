// Package journal filters Redmine journal entries down to code-review
// activity.
//
// Two predicates exist. ClassifyEntry is the strict one used by the response
// filter: only entries whose notes classify as code review are kept, and
// detail-only entries never are. IsRelevantEntry also considers custom-field
// changes and is used for reporting.
package journal
