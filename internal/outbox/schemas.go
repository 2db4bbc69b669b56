package outbox

const activityDayStartedSchema = `{
  "type": "object",
  "title": "ActivityDayStarted",
  "properties": {
    "record_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "activity_date": {"type": "string", "format": "date"},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["record_id", "tenant_id", "user_id", "activity_date", "occurred_at"],
  "additionalProperties": false
}`

const activityCounterIncrementedSchema = `{
  "type": "object",
  "title": "ActivityCounterIncremented",
  "properties": {
    "record_id": {"type": "string"},
    "tenant_id": {"type": "string"},
    "user_id": {"type": "string"},
    "activity_date": {"type": "string", "format": "date"},
    "category": {"type": "string", "enum": ["goals", "tasks", "habits"]},
    "amount": {"type": "integer", "minimum": 1},
    "total": {"type": "integer", "minimum": 0},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["record_id", "tenant_id", "user_id", "activity_date", "category", "amount", "total", "occurred_at"],
  "additionalProperties": false
}`
