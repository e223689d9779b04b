package metadata

/**
 * @brief Describes a job to be run by the job system.
 */
type JobTask struct {
	Name string
	/** @brief Invoked on a worker. The result is handed to OnComplete. Required. */
	OnStart func() (interface{}, error)
	/** @brief Invoked on the worker when OnStart succeeds. Optional. */
	OnComplete func(result interface{})
	/** @brief Invoked on the worker when OnStart fails. Optional. */
	OnFailure func(err error)
	/** @brief Invoked after either outcome. Optional. */
	OnCompletionCallback func()
}
