// Package formset keeps the repeated form rows of a Django-style formset
// consistent inside an HTML node tree. A Registry owns one container element,
// addresses its rows through stable logical identifiers, and rewrites the
// `{prefix}-{position}-{field}` names whenever rows are appended or removed so
// the submitted payload still matches what the server-side form processor
// expects. Rows rendered by the server are soft-deleted through their DELETE
// marker; rows added on the client are physically removed and the rows after
// them renumbered. The management form counters (TOTAL_FORMS, MIN_NUM_FORMS,
// MAX_NUM_FORMS) are read once and TOTAL_FORMS is kept in sync with the
// registry. A Registry is not safe for concurrent use; it is meant to be driven
// from a single request or event loop, like the node tree it mutates.
package formset
