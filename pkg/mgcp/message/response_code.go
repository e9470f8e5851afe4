package message

import "strconv"

// ResponseCode код ответа MGCP (RFC 3435, раздел 2.4)
type ResponseCode int

const (
	TransactionBeingExecuted              ResponseCode = 100
	TransactionHasBeenQueued              ResponseCode = 101
	TransactionWasExecuted                ResponseCode = 200
	ConnectionWasDeleted                  ResponseCode = 250
	TransientError                        ResponseCode = 400
	PhoneOffHook                          ResponseCode = 401
	PhoneOnHook                           ResponseCode = 402
	InsufficientResourcesNow              ResponseCode = 403
	InsufficientBandwidthNow              ResponseCode = 404
	EndpointRestarting                    ResponseCode = 405
	TransactionTimedOut                   ResponseCode = 406
	TransactionAborted                    ResponseCode = 407
	InternalOverload                      ResponseCode = 409
	NoEndpointAvailable                   ResponseCode = 410
	EndpointUnknown                       ResponseCode = 500
	EndpointNotReady                      ResponseCode = 501
	InsufficientResources                 ResponseCode = 502
	WildcardTooComplicated                ResponseCode = 503
	UnknownOrUnsupportedCommand           ResponseCode = 504
	UnsupportedRemoteConnectionDescriptor ResponseCode = 505
	UnableToSatisfyOptions                ResponseCode = 506
	UnsupportedFunctionality              ResponseCode = 507
	UnknownQuarantineHandling             ResponseCode = 508
	ErrorInRemoteConnectionDescriptor     ResponseCode = 509
	ProtocolError                         ResponseCode = 510
	UnrecognizedExtension                 ResponseCode = 511
	CannotDetectEvent                     ResponseCode = 512
	CannotGenerateSignal                  ResponseCode = 513
	CannotSendAnnouncement                ResponseCode = 514
	IncorrectConnectionID                 ResponseCode = 515
	UnknownCallID                         ResponseCode = 516
	UnsupportedOrInvalidMode              ResponseCode = 517
	UnknownPackage                        ResponseCode = 518
	EndpointHasNoDigitMap                 ResponseCode = 519
	EndpointRestartingUnavailable         ResponseCode = 520
	EndpointRedirected                    ResponseCode = 521
	NoSuchEventOrSignal                   ResponseCode = 522
	UnknownActionOrIllegalCombination     ResponseCode = 523
	InternalInconsistencyInOptions        ResponseCode = 524
	UnknownExtensionInOptions             ResponseCode = 525
	InsufficientBandwidth                 ResponseCode = 526
	MissingRemoteConnectionDescriptor     ResponseCode = 527
	IncompatibleProtocolVersion           ResponseCode = 528
	InternalHardwareFailure               ResponseCode = 529
	CASSignalingProtocolError             ResponseCode = 530
	TrunkGroupingFailure                  ResponseCode = 531
	UnsupportedValuesInOptions            ResponseCode = 532
	ResponseTooLarge                      ResponseCode = 533
	CodecNegotiationFailure               ResponseCode = 534
	PacketizationPeriodNotSupported       ResponseCode = 535
	UnknownRestartMethod                  ResponseCode = 536
	UnknownDigitMapExtension              ResponseCode = 537
	EventOrSignalParameterError           ResponseCode = 538
	InvalidOrUnsupportedCommandParameter  ResponseCode = 539
	ConnectionLimitExceeded               ResponseCode = 540
	InvalidLocalConnectionOptions         ResponseCode = 541
)

var responseMessages = map[ResponseCode]string{
	TransactionBeingExecuted:              "Transaction being executed",
	TransactionHasBeenQueued:              "Transaction has been queued",
	TransactionWasExecuted:                "Transaction executed normally",
	ConnectionWasDeleted:                  "Connection was deleted",
	TransientError:                        "Transient error",
	PhoneOffHook:                          "Phone off hook",
	PhoneOnHook:                           "Phone on hook",
	InsufficientResourcesNow:              "Insufficient resources now",
	InsufficientBandwidthNow:              "Insufficient bandwidth now",
	EndpointRestarting:                    "Endpoint is restarting",
	TransactionTimedOut:                   "Timeout",
	TransactionAborted:                    "Transaction aborted",
	InternalOverload:                      "Internal overload",
	NoEndpointAvailable:                   "No endpoint available",
	EndpointUnknown:                       "Endpoint unknown",
	EndpointNotReady:                      "Endpoint not ready",
	InsufficientResources:                 "Insufficient resources",
	WildcardTooComplicated:                "Wildcard too complicated",
	UnknownOrUnsupportedCommand:           "Unknown or unsupported command",
	UnsupportedRemoteConnectionDescriptor: "Unsupported remote connection descriptor",
	UnableToSatisfyOptions:                "Unable to satisfy both local connection options and remote connection descriptor",
	UnsupportedFunctionality:              "Unsupported functionality",
	UnknownQuarantineHandling:             "Unknown or unsupported quarantine handling",
	ErrorInRemoteConnectionDescriptor:     "Error in remote connection descriptor",
	ProtocolError:                         "Protocol error",
	UnrecognizedExtension:                 "Unrecognized extension",
	CannotDetectEvent:                     "Can't detect event",
	CannotGenerateSignal:                  "Can't generate signal",
	CannotSendAnnouncement:                "Can't send announcement",
	IncorrectConnectionID:                 "Incorrect connection-id",
	UnknownCallID:                         "Unknown call-id",
	UnsupportedOrInvalidMode:              "Unsupported or invalid mode",
	UnknownPackage:                        "Unsupported or unknown package",
	EndpointHasNoDigitMap:                 "Endpoint does not have a digit map",
	EndpointRestartingUnavailable:         "Endpoint is restarting",
	EndpointRedirected:                    "Endpoint redirected to another call agent",
	NoSuchEventOrSignal:                   "No such event or signal",
	UnknownActionOrIllegalCombination:     "Unknown action or illegal combination of actions",
	InternalInconsistencyInOptions:        "Internal inconsistency in local connection options",
	UnknownExtensionInOptions:             "Unknown extension in local connection options",
	InsufficientBandwidth:                 "Insufficient bandwidth",
	MissingRemoteConnectionDescriptor:     "Missing remote connection descriptor",
	IncompatibleProtocolVersion:           "Incompatible protocol version",
	InternalHardwareFailure:               "Internal hardware failure",
	CASSignalingProtocolError:             "CAS signaling protocol error",
	TrunkGroupingFailure:                  "Failure of a grouping of trunks",
	UnsupportedValuesInOptions:            "Unsupported values in local connection options",
	ResponseTooLarge:                      "Response too large",
	CodecNegotiationFailure:               "Codec negotiation failure",
	PacketizationPeriodNotSupported:       "Packetization period not supported",
	UnknownRestartMethod:                  "Unknown or unsupported restart method",
	UnknownDigitMapExtension:              "Unknown or unsupported digit map extension",
	EventOrSignalParameterError:           "Event/signal parameter error",
	InvalidOrUnsupportedCommandParameter:  "Invalid or unsupported command parameter",
	ConnectionLimitExceeded:               "Per endpoint connection limit exceeded",
	InvalidLocalConnectionOptions:         "Invalid or unsupported local connection options",
}

// Code возвращает числовое значение кода
func (c ResponseCode) Code() int {
	return int(c)
}

// Message возвращает стандартный комментарий к коду
func (c ResponseCode) Message() string {
	if msg, ok := responseMessages[c]; ok {
		return msg
	}
	return "Unknown response code"
}

// IsProvisional 1xx
func (c ResponseCode) IsProvisional() bool {
	return c >= 100 && c < 200
}

// IsSuccess 2xx
func (c ResponseCode) IsSuccess() bool {
	return c >= 200 && c < 300
}

// IsTransientError 4xx
func (c ResponseCode) IsTransientError() bool {
	return c >= 400 && c < 500
}

// IsPermanentError 5xx
func (c ResponseCode) IsPermanentError() bool {
	return c >= 500 && c < 600
}

func (c ResponseCode) String() string {
	return strconv.Itoa(int(c)) + " " + c.Message()
}
