package server

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerTools() {
	// list_windows
	s.mcp.AddTool(
		mcp.NewTool("list_windows",
			mcp.WithDescription("List canonical window snapshots, merged from the structural and accessibility views. Paginated."),
			mcp.WithString("parent", mcp.Description("Scope: applications/{pid}, or applications/- for every application (default)")),
			mcp.WithNumber("page_size", mcp.Description("Windows per page (default 50, max 500)")),
			mcp.WithString("page_token", mcp.Description("Token from a previous page")),
			mcp.WithString("read_mask", mcp.Description("Comma-separated fields to return (default all)")),
		),
		s.handleListWindows,
	)

	// get_window
	s.mcp.AddTool(
		mcp.NewTool("get_window",
			mcp.WithDescription("Get one canonical window snapshot by resource name"),
			mcp.WithString("name", mcp.Description("applications/{pid}/windows/{id}"), mcp.Required()),
			mcp.WithString("read_mask", mcp.Description("Comma-separated fields to return (default all)")),
		),
		s.handleGetWindow,
	)

	// find_elements
	s.mcp.AddTool(
		mcp.NewTool("find_elements",
			mcp.WithDescription("Capture an application's element snapshots and filter them with a selector. Paginated."),
			mcp.WithString("parent", mcp.Description("applications/{pid}"), mcp.Required()),
			mcp.WithString("selector", mcp.Description("Selector as YAML/JSON: role, text_contains, text_regex, position, attributes, or compound AND/OR/NOT (empty matches all)")),
			mcp.WithBoolean("visible_only", mcp.Description("Skip off-screen elements")),
			mcp.WithString("roles", mcp.Description("Comma-separated roles to capture (empty = all)")),
			mcp.WithString("attributes", mcp.Description("Comma-separated extra attributes to capture")),
			mcp.WithNumber("page_size", mcp.Description("Elements per page (default 50, max 500)")),
			mcp.WithString("page_token", mcp.Description("Token from a previous page")),
			mcp.WithString("read_mask", mcp.Description("Comma-separated fields to return (default all)")),
		),
		s.handleFindElements,
	)

	// register_element
	s.mcp.AddTool(
		mcp.NewTool("register_element",
			mcp.WithDescription("Register the first element matching a selector as a TTL-bounded handle and return its resource name"),
			mcp.WithString("parent", mcp.Description("applications/{pid}"), mcp.Required()),
			mcp.WithString("selector", mcp.Description("Selector as YAML/JSON (empty matches the first captured element)")),
			mcp.WithBoolean("visible_only", mcp.Description("Skip off-screen elements")),
			mcp.WithString("roles", mcp.Description("Comma-separated roles to capture (empty = all)")),
			mcp.WithString("attributes", mcp.Description("Comma-separated extra attributes to capture")),
		),
		s.handleRegisterElement,
	)

	// get_element
	s.mcp.AddTool(
		mcp.NewTool("get_element",
			mcp.WithDescription("Get a registered element handle. Expired handles report not_found."),
			mcp.WithString("name", mcp.Description("applications/{pid}/elements/{id}"), mcp.Required()),
			mcp.WithString("read_mask", mcp.Description("Comma-separated fields to return (default all)")),
		),
		s.handleGetElement,
	)

	// release_element
	s.mcp.AddTool(
		mcp.NewTool("release_element",
			mcp.WithDescription("Drop one registered element handle. Releasing an unknown handle is a no-op."),
			mcp.WithString("name", mcp.Description("applications/{pid}/elements/{id}"), mcp.Required()),
		),
		s.handleReleaseElement,
	)

	// release_elements
	s.mcp.AddTool(
		mcp.NewTool("release_elements",
			mcp.WithDescription("Drop every element handle owned by one application"),
			mcp.WithString("parent", mcp.Description("applications/{pid}"), mcp.Required()),
		),
		s.handleReleaseElements,
	)

	// cache_stats
	s.mcp.AddTool(
		mcp.NewTool("cache_stats",
			mcp.WithDescription("Report element handle cache occupancy: total, active, and expired-but-unswept counts"),
		),
		s.handleCacheStats,
	)

	// validate_selector
	s.mcp.AddTool(
		mcp.NewTool("validate_selector",
			mcp.WithDescription("Check a selector against the grammar without evaluating it. Invalid selectors return the failure, not an error."),
			mcp.WithString("selector", mcp.Description("Selector as YAML/JSON"), mcp.Required()),
		),
		s.handleValidateSelector,
	)

	// create_observation
	s.mcp.AddTool(
		mcp.NewTool("create_observation",
			mcp.WithDescription("Create a pending observation. Start it by calling stream_observation."),
			mcp.WithString("type", mcp.Description("element_changes, window_changes, application_changes, attribute_changes, or tree_changes"), mcp.Required()),
			mcp.WithNumber("pid", mcp.Description("Target process (0 = whole desktop; element-scoped types need a concrete pid)")),
			mcp.WithString("id", mcp.Description("Observation id (generated when empty)")),
			mcp.WithNumber("poll_interval_ms", mcp.Description("Poll interval in milliseconds (clamped to the configured floor)")),
			mcp.WithBoolean("visible_only", mcp.Description("Skip off-screen elements")),
			mcp.WithString("roles", mcp.Description("Comma-separated roles to capture (empty = all)")),
			mcp.WithString("attributes", mcp.Description("Comma-separated extra attributes to capture")),
		),
		s.handleCreateObservation,
	)

	// get_observation
	s.mcp.AddTool(
		mcp.NewTool("get_observation",
			mcp.WithDescription("Get one observation's lifecycle record"),
			mcp.WithString("name", mcp.Description("applications/{pid}/observations/{id}"), mcp.Required()),
			mcp.WithString("read_mask", mcp.Description("Comma-separated fields to return (default all)")),
		),
		s.handleGetObservation,
	)

	// list_observations
	s.mcp.AddTool(
		mcp.NewTool("list_observations",
			mcp.WithDescription("List observations under an application scope. Paginated, ordered by name."),
			mcp.WithString("parent", mcp.Description("applications/{pid}, or applications/- for every application (default)")),
			mcp.WithNumber("page_size", mcp.Description("Observations per page (default 50, max 500)")),
			mcp.WithString("page_token", mcp.Description("Token from a previous page")),
			mcp.WithString("read_mask", mcp.Description("Comma-separated fields to return (default all)")),
		),
		s.handleListObservations,
	)

	// cancel_observation
	s.mcp.AddTool(
		mcp.NewTool("cancel_observation",
			mcp.WithDescription("Cancel an observation, stopping its poller and closing its stream. Cancelling a finished observation returns it unchanged."),
			mcp.WithString("name", mcp.Description("applications/{pid}/observations/{id}"), mcp.Required()),
		),
		s.handleCancelObservation,
	)

	// stream_observation
	s.mcp.AddTool(
		mcp.NewTool("stream_observation",
			mcp.WithDescription("Start an observation if needed and collect its change events until max_events arrive or the timeout lapses. The observation keeps running between calls."),
			mcp.WithString("name", mcp.Description("applications/{pid}/observations/{id}"), mcp.Required()),
			mcp.WithNumber("max_events", mcp.Description("Max events to collect (default 10, max 500)")),
			mcp.WithNumber("timeout_ms", mcp.Description("Max milliseconds to wait (default 5000)")),
		),
		s.handleStreamObservation,
	)

	// create_session
	s.mcp.AddTool(
		mcp.NewTool("create_session",
			mcp.WithDescription("Create an active automation session"),
			mcp.WithString("id", mcp.Description("Session id (generated when empty)")),
			mcp.WithString("display_name", mcp.Description("Human-readable label")),
			mcp.WithString("isolation", mcp.Description("Isolation mode label, stored verbatim")),
			mcp.WithNumber("timeout_ms", mcp.Description("Session timeout in milliseconds, stored verbatim")),
			mcp.WithString("metadata", mcp.Description("String-to-string map as YAML/JSON")),
		),
		s.handleCreateSession,
	)

	// get_session
	s.mcp.AddTool(
		mcp.NewTool("get_session",
			mcp.WithDescription("Get one session"),
			mcp.WithString("name", mcp.Description("sessions/{id}"), mcp.Required()),
			mcp.WithString("read_mask", mcp.Description("Comma-separated fields to return (default all)")),
		),
		s.handleGetSession,
	)

	// list_sessions
	s.mcp.AddTool(
		mcp.NewTool("list_sessions",
			mcp.WithDescription("List sessions. Paginated, ordered by name."),
			mcp.WithNumber("page_size", mcp.Description("Sessions per page (default 50, max 500)")),
			mcp.WithString("page_token", mcp.Description("Token from a previous page")),
			mcp.WithString("read_mask", mcp.Description("Comma-separated fields to return (default all)")),
		),
		s.handleListSessions,
	)

	// delete_session
	s.mcp.AddTool(
		mcp.NewTool("delete_session",
			mcp.WithDescription("Delete a session. Active or mid-transaction sessions require force."),
			mcp.WithString("name", mcp.Description("sessions/{id}"), mcp.Required()),
			mcp.WithBoolean("force", mcp.Description("Delete even while active or mid-transaction")),
		),
		s.handleDeleteSession,
	)

	// get_session_snapshot
	s.mcp.AddTool(
		mcp.NewTool("get_session_snapshot",
			mcp.WithDescription("Summarize one session: record, age, and whether a transaction is open"),
			mcp.WithString("name", mcp.Description("sessions/{id}"), mcp.Required()),
		),
		s.handleGetSessionSnapshot,
	)

	// begin_transaction
	s.mcp.AddTool(
		mcp.NewTool("begin_transaction",
			mcp.WithDescription("Open a session's single transaction slot and return the transaction id"),
			mcp.WithString("session", mcp.Description("sessions/{id}"), mcp.Required()),
		),
		s.handleBeginTransaction,
	)

	// commit_transaction
	s.mcp.AddTool(
		mcp.NewTool("commit_transaction",
			mcp.WithDescription("Commit a session's open transaction, returning the session to active"),
			mcp.WithString("session", mcp.Description("sessions/{id}"), mcp.Required()),
			mcp.WithString("transaction_id", mcp.Description("Transaction id from begin_transaction"), mcp.Required()),
		),
		s.handleCommitTransaction,
	)

	// rollback_transaction
	s.mcp.AddTool(
		mcp.NewTool("rollback_transaction",
			mcp.WithDescription("Discard a session's open transaction, returning the session to active"),
			mcp.WithString("session", mcp.Description("sessions/{id}"), mcp.Required()),
			mcp.WithString("transaction_id", mcp.Description("Transaction id from begin_transaction"), mcp.Required()),
		),
		s.handleRollbackTransaction,
	)

	// create_macro
	s.mcp.AddTool(
		mcp.NewTool("create_macro",
			mcp.WithDescription("Create a reusable action sequence. Actions and parameters are stored verbatim."),
			mcp.WithString("display_name", mcp.Description("Human-readable label"), mcp.Required()),
			mcp.WithString("id", mcp.Description("Macro id (generated when empty)")),
			mcp.WithString("description", mcp.Description("What the macro does")),
			mcp.WithArray("actions", mcp.Description("Array of {type, target, value, params, delay_ms} steps")),
			mcp.WithArray("parameters", mcp.Description("Array of {name, description, required, default_value} inputs")),
			mcp.WithArray("tags", mcp.Description("Array of tag strings")),
		),
		s.handleCreateMacro,
	)

	// get_macro
	s.mcp.AddTool(
		mcp.NewTool("get_macro",
			mcp.WithDescription("Get one macro"),
			mcp.WithString("name", mcp.Description("macros/{id}"), mcp.Required()),
			mcp.WithString("read_mask", mcp.Description("Comma-separated fields to return (default all)")),
		),
		s.handleGetMacro,
	)

	// list_macros
	s.mcp.AddTool(
		mcp.NewTool("list_macros",
			mcp.WithDescription("List macros. Paginated, ordered by name."),
			mcp.WithNumber("page_size", mcp.Description("Macros per page (default 50, max 500)")),
			mcp.WithString("page_token", mcp.Description("Token from a previous page")),
			mcp.WithString("read_mask", mcp.Description("Comma-separated fields to return (default all)")),
		),
		s.handleListMacros,
	)

	// update_macro
	s.mcp.AddTool(
		mcp.NewTool("update_macro",
			mcp.WithDescription("Update a macro. Absent arguments leave their fields untouched; present ones replace them wholesale."),
			mcp.WithString("name", mcp.Description("macros/{id}"), mcp.Required()),
			mcp.WithString("display_name", mcp.Description("New label (must stay non-empty)")),
			mcp.WithString("description", mcp.Description("New description")),
			mcp.WithArray("actions", mcp.Description("Replacement action array")),
			mcp.WithArray("parameters", mcp.Description("Replacement parameter array")),
			mcp.WithArray("tags", mcp.Description("Replacement tag array")),
		),
		s.handleUpdateMacro,
	)

	// delete_macro
	s.mcp.AddTool(
		mcp.NewTool("delete_macro",
			mcp.WithDescription("Delete a macro"),
			mcp.WithString("name", mcp.Description("macros/{id}"), mcp.Required()),
		),
		s.handleDeleteMacro,
	)

	// record_macro_execution
	s.mcp.AddTool(
		mcp.NewTool("record_macro_execution",
			mcp.WithDescription("Account one execution of a macro as a long-running operation. Poll get_operation for the updated macro."),
			mcp.WithString("macro", mcp.Description("macros/{id}"), mcp.Required()),
		),
		s.handleRecordMacroExecution,
	)

	// get_operation
	s.mcp.AddTool(
		mcp.NewTool("get_operation",
			mcp.WithDescription("Get one long-running operation; done operations carry a result or an error"),
			mcp.WithString("name", mcp.Description("operations/{id}"), mcp.Required()),
			mcp.WithString("read_mask", mcp.Description("Comma-separated fields to return (default all)")),
		),
		s.handleGetOperation,
	)

	// list_operations
	s.mcp.AddTool(
		mcp.NewTool("list_operations",
			mcp.WithDescription("List long-running operations. Paginated, ordered by name."),
			mcp.WithNumber("page_size", mcp.Description("Operations per page (default 50, max 500)")),
			mcp.WithString("page_token", mcp.Description("Token from a previous page")),
			mcp.WithString("read_mask", mcp.Description("Comma-separated fields to return (default all)")),
		),
		s.handleListOperations,
	)
}
