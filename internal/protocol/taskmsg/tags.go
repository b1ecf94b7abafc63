package taskmsg

// 消息 tag
const (
	TagHello    = "offload.control.hello.v1"
	TagHelloAck = "offload.control.hello-ack.v1"

	TagRequest   = "offload.task.request.v1"
	TagResponse  = "offload.task.response.v1"
	TagError     = "offload.task.error.v1"
	TagCancel    = "offload.task.cancel.v1"
	TagCancelled = "offload.task.cancelled.v1"
	TagTimeout   = "offload.task.timeout.v1"

	TagAssemblyRequest  = "offload.assembly.request.v1"
	TagAssemblyResponse = "offload.assembly.response.v1"

	TagFileRequest  = "offload.file.request.v1"
	TagFileResponse = "offload.file.response.v1"

	TagRunnerRequest  = "offload.mediator.runner-request.v1"
	TagRunnerResponse = "offload.mediator.runner-response.v1"
	TagRunnerRegister = "offload.mediator.runner-register.v1"
	TagRunnerStatus   = "offload.mediator.runner-status.v1"
)
