package dispatch

// fanoutTable maps an event type to the refresh keys it invalidates. Some
// keys are parameterized by fields in the event payload; a missing field
// drops the parameterized key and keeps the rest.
var fanoutTable = map[string]func(Event) []string{
	TypeCustomer: func(e Event) []string {
		return []string{"customers-list", "dashboard-stats", "customer-" + e.ID}
	},
	TypeConversation: func(e Event) []string {
		keys := []string{"dashboard-stats"}
		if cid, ok := e.Data["customer_id"]; ok && cid != "" {
			keys = append(keys, "conversations-"+cid)
		} else {
			// No customer in the payload: invalidate the currently viewed
			// conversation pane instead of guessing a customer.
			keys = append(keys, "conversations-current")
		}
		return keys
	},
	TypeActionPlan: func(e Event) []string {
		keys := []string{"actionplans-list", "actionplan-" + e.ID, "dashboard-stats"}
		if cid, ok := e.Data["customer_id"]; ok && cid != "" {
			keys = append(keys, "customer-"+cid)
		}
		return keys
	},
	TypeActionItem: func(e Event) []string {
		if pid, ok := e.Data["action_plan_id"]; ok && pid != "" {
			return []string{"actionplan-" + pid}
		}
		return []string{"actionplans-list"}
	},
	TypeTask: func(e Event) []string {
		return []string{"tasks-list"}
	},
	TypeCSVJob: func(e Event) []string {
		return []string{"csvjobs-list", "dashboard-stats"}
	},
	TypeBoard: func(e Event) []string {
		return []string{"boards-list", "board-" + e.ID}
	},
	TypeCard: func(e Event) []string {
		keys := []string{}
		if bid, ok := e.Data["board_id"]; ok && bid != "" {
			keys = append(keys, "board-"+bid)
		} else {
			keys = append(keys, "boards-list")
		}
		if pid, ok := e.Data["action_plan_id"]; ok && pid != "" {
			keys = append(keys, "actionplan-"+pid)
		}
		return keys
	},
}

// RefreshKeys returns the logical refresh keys invalidated by an event.
// Unknown event types invalidate nothing.
func RefreshKeys(e Event) []string {
	fn, ok := fanoutTable[e.Type]
	if !ok {
		return nil
	}
	return fn(e)
}
