// Package api defines the vitalrite.v1.CareService gRPC surface: its
// messages, a JSON codec, and the service descriptor servers register.
package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"vitalrite-api/internal/model"
)

const ServiceName = "vitalrite.v1.CareService"

// FullMethod returns the "/service/method" path of name.
func FullMethod(name string) string { return "/" + ServiceName + "/" + name }

type CareServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Refresh(context.Context, *RefreshRequest) (*RefreshResponse, error)
	Logout(context.Context, *Empty) (*Empty, error)

	GetProfile(context.Context, *Empty) (*ProfileResponse, error)
	UpdateProfile(context.Context, *UpdateProfileRequest) (*ProfileResponse, error)

	SetAvailability(context.Context, *model.DoctorAvailability) (*model.DoctorAvailability, error)
	GetAvailability(context.Context, *AvailabilityRequest) (*model.DoctorAvailability, error)
	SearchDoctors(context.Context, *SearchDoctorsRequest) (*SearchDoctorsResponse, error)
	AvailableSlots(context.Context, *SlotsRequest) (*SlotsResponse, error)
	BookAppointment(context.Context, *BookRequest) (*model.Appointment, error)
	CancelAppointment(context.Context, *AppointmentRequest) (*model.Appointment, error)
	ListAppointments(context.Context, *ListAppointmentsRequest) (*AppointmentsResponse, error)

	Prescribe(context.Context, *PrescribeRequest) (*model.Prescription, error)
	ListPrescriptions(context.Context, *Empty) (*PrescriptionsResponse, error)

	ListReminders(context.Context, *Empty) (*RemindersResponse, error)
	TakeDose(context.Context, *DoseRequest) (*model.Reminder, error)
	SnoozeDose(context.Context, *DoseRequest) (*model.Reminder, error)

	WatchReminders(*Empty, grpc.ServerStreamingServer[RemindersResponse]) error
	WatchAppointments(*Empty, grpc.ServerStreamingServer[AppointmentsResponse]) error
}

// UnimplementedCareServer answers every method with Unimplemented.
type UnimplementedCareServer struct{}

func unimplemented(m string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", m)
}

func (UnimplementedCareServer) Register(context.Context, *RegisterRequest) (*RegisterResponse, error) {
	return nil, unimplemented("Register")
}
func (UnimplementedCareServer) Login(context.Context, *LoginRequest) (*LoginResponse, error) {
	return nil, unimplemented("Login")
}
func (UnimplementedCareServer) Refresh(context.Context, *RefreshRequest) (*RefreshResponse, error) {
	return nil, unimplemented("Refresh")
}
func (UnimplementedCareServer) Logout(context.Context, *Empty) (*Empty, error) {
	return nil, unimplemented("Logout")
}
func (UnimplementedCareServer) GetProfile(context.Context, *Empty) (*ProfileResponse, error) {
	return nil, unimplemented("GetProfile")
}
func (UnimplementedCareServer) UpdateProfile(context.Context, *UpdateProfileRequest) (*ProfileResponse, error) {
	return nil, unimplemented("UpdateProfile")
}
func (UnimplementedCareServer) SetAvailability(context.Context, *model.DoctorAvailability) (*model.DoctorAvailability, error) {
	return nil, unimplemented("SetAvailability")
}
func (UnimplementedCareServer) GetAvailability(context.Context, *AvailabilityRequest) (*model.DoctorAvailability, error) {
	return nil, unimplemented("GetAvailability")
}
func (UnimplementedCareServer) SearchDoctors(context.Context, *SearchDoctorsRequest) (*SearchDoctorsResponse, error) {
	return nil, unimplemented("SearchDoctors")
}
func (UnimplementedCareServer) AvailableSlots(context.Context, *SlotsRequest) (*SlotsResponse, error) {
	return nil, unimplemented("AvailableSlots")
}
func (UnimplementedCareServer) BookAppointment(context.Context, *BookRequest) (*model.Appointment, error) {
	return nil, unimplemented("BookAppointment")
}
func (UnimplementedCareServer) CancelAppointment(context.Context, *AppointmentRequest) (*model.Appointment, error) {
	return nil, unimplemented("CancelAppointment")
}
func (UnimplementedCareServer) ListAppointments(context.Context, *ListAppointmentsRequest) (*AppointmentsResponse, error) {
	return nil, unimplemented("ListAppointments")
}
func (UnimplementedCareServer) Prescribe(context.Context, *PrescribeRequest) (*model.Prescription, error) {
	return nil, unimplemented("Prescribe")
}
func (UnimplementedCareServer) ListPrescriptions(context.Context, *Empty) (*PrescriptionsResponse, error) {
	return nil, unimplemented("ListPrescriptions")
}
func (UnimplementedCareServer) ListReminders(context.Context, *Empty) (*RemindersResponse, error) {
	return nil, unimplemented("ListReminders")
}
func (UnimplementedCareServer) TakeDose(context.Context, *DoseRequest) (*model.Reminder, error) {
	return nil, unimplemented("TakeDose")
}
func (UnimplementedCareServer) SnoozeDose(context.Context, *DoseRequest) (*model.Reminder, error) {
	return nil, unimplemented("SnoozeDose")
}
func (UnimplementedCareServer) WatchReminders(*Empty, grpc.ServerStreamingServer[RemindersResponse]) error {
	return unimplemented("WatchReminders")
}
func (UnimplementedCareServer) WatchAppointments(*Empty, grpc.ServerStreamingServer[AppointmentsResponse]) error {
	return unimplemented("WatchAppointments")
}

func RegisterCareServer(s grpc.ServiceRegistrar, srv CareServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unary builds the method table entry for one request/response call,
// running the server's interceptor chain when there is one.
func unary[Req, Resp any](name string, call func(CareServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if ic == nil {
				return call(srv.(CareServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return ic(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(CareServer), ctx, req.(*Req))
			})
		},
	}
}

func serverStream[Req, Resp any](name string, call func(CareServer, *Req, grpc.ServerStreamingServer[Resp]) error) grpc.StreamDesc {
	return grpc.StreamDesc{
		StreamName:    name,
		ServerStreams: true,
		Handler: func(srv any, stream grpc.ServerStream) error {
			in := new(Req)
			if err := stream.RecvMsg(in); err != nil {
				return err
			}
			return call(srv.(CareServer), in, &grpc.GenericServerStream[Req, Resp]{ServerStream: stream})
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CareServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Register", CareServer.Register),
		unary("Login", CareServer.Login),
		unary("Refresh", CareServer.Refresh),
		unary("Logout", CareServer.Logout),
		unary("GetProfile", CareServer.GetProfile),
		unary("UpdateProfile", CareServer.UpdateProfile),
		unary("SetAvailability", CareServer.SetAvailability),
		unary("GetAvailability", CareServer.GetAvailability),
		unary("SearchDoctors", CareServer.SearchDoctors),
		unary("AvailableSlots", CareServer.AvailableSlots),
		unary("BookAppointment", CareServer.BookAppointment),
		unary("CancelAppointment", CareServer.CancelAppointment),
		unary("ListAppointments", CareServer.ListAppointments),
		unary("Prescribe", CareServer.Prescribe),
		unary("ListPrescriptions", CareServer.ListPrescriptions),
		unary("ListReminders", CareServer.ListReminders),
		unary("TakeDose", CareServer.TakeDose),
		unary("SnoozeDose", CareServer.SnoozeDose),
	},
	Streams: []grpc.StreamDesc{
		serverStream("WatchReminders", CareServer.WatchReminders),
		serverStream("WatchAppointments", CareServer.WatchAppointments),
	},
	Metadata: "vitalrite/v1/care.proto",
}

// Invoke calls a unary CareService method over cc with the JSON codec.
func Invoke[Req, Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in *Req, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

var watchDesc = map[string]*grpc.StreamDesc{
	"WatchReminders":    {StreamName: "WatchReminders", ServerStreams: true},
	"WatchAppointments": {StreamName: "WatchAppointments", ServerStreams: true},
}

// Watch opens a server-streaming CareService method.
func Watch[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Resp], error) {
	opts = append(opts, grpc.CallContentSubtype(CodecName))
	stream, err := cc.NewStream(ctx, watchDesc[method], FullMethod(method), opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[Empty, Resp]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(&Empty{}); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}
