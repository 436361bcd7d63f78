package constants

// Имена очередей
const (
	QueueHarvestTasks = "harvest_tasks"
)

// Ключи маршрутизации
const (
	RoutingKeyHarvestTasks = "harvest.tasks"
	RoutingKeyTaskResults  = "notify.task.result"
)

const (
	FinalDLXExchange   = "harvest_tasks_final_dlx"
	FinalDLQ           = "harvest_tasks_final_dlq"
	FinalDLQRoutingKey = "harvest_tasks.dlq.key"
)
