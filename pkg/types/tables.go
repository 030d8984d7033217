package types

// Event name suffixes for table statements.
const (
	OpCreate  = "Create"
	OpUpdate  = "Update"
	OpDestroy = "Destroy"
	OpLoad    = "Load"
)

// TableEvent returns the notification name of a statement on table.
func TableEvent(table, op string) string {
	return table + " " + op
}
