package scheduling

import (
	"net/http"

	"github.com/Abraxas-365/craftable/errx"
)

var ErrRegistry = errx.NewRegistry("SCHEDULING")

var (
	CodeServiceUnavailable  = ErrRegistry.Register("SERVICE_UNAVAILABLE", errx.TypeExternal, http.StatusBadGateway, "Scheduling service unavailable")
	CodeSlotTaken           = ErrRegistry.Register("SLOT_TAKEN", errx.TypeConflict, http.StatusConflict, "Slot is no longer available")
	CodeAppointmentNotFound = ErrRegistry.Register("APPOINTMENT_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Appointment not found")
	CodeUnknownResource     = ErrRegistry.Register("UNKNOWN_RESOURCE", errx.TypeValidation, http.StatusBadRequest, "Referenced type, location or agent does not exist")
)

func ErrServiceUnavailable() *errx.Error {
	return ErrRegistry.New(CodeServiceUnavailable)
}

func ErrSlotTaken() *errx.Error {
	return ErrRegistry.New(CodeSlotTaken)
}

func ErrAppointmentNotFound() *errx.Error {
	return ErrRegistry.New(CodeAppointmentNotFound)
}

func ErrUnknownResource() *errx.Error {
	return ErrRegistry.New(CodeUnknownResource)
}
