package crsf

// Address is the CRSF device address that opens every frame.
type Address byte

const (
	AddrBroadcast        Address = 0x00
	AddrUSB              Address = 0x10
	AddrBluetooth        Address = 0x12
	AddrTBSCorePNPPro    Address = 0x80
	AddrReserved1        Address = 0x8A
	AddrCurrentSensor    Address = 0xC0
	AddrGPS              Address = 0xC2
	AddrTBSBlackbox      Address = 0xC4
	AddrFlightController Address = 0xC8
	AddrReserved2        Address = 0xCA
	AddrRaceTag          Address = 0xCC
	AddrHandset          Address = 0xEA
	AddrReceiver         Address = 0xEC
	AddrTransmitter      Address = 0xEE
)

func (a Address) Valid() bool {
	switch a {
	case AddrBroadcast, AddrUSB, AddrBluetooth, AddrTBSCorePNPPro, AddrReserved1,
		AddrCurrentSensor, AddrGPS, AddrTBSBlackbox, AddrFlightController,
		AddrReserved2, AddrRaceTag, AddrHandset, AddrReceiver, AddrTransmitter:
		return true
	}
	return false
}

// FrameType is the byte after LEN.
type FrameType byte

const (
	TypeGPS              FrameType = 0x02
	TypeBatterySensor    FrameType = 0x08
	TypeLinkStatistics   FrameType = 0x14
	TypeRcChannelsPacked FrameType = 0x16
	TypeAttitude         FrameType = 0x1E
	TypeFlightMode       FrameType = 0x21
	TypeDevicePing       FrameType = 0x28
	TypeDeviceInfo       FrameType = 0x29
	TypeParameterEntry   FrameType = 0x2B
	TypeParameterRead    FrameType = 0x2C
	TypeParameterWrite   FrameType = 0x2D
	TypeCommand          FrameType = 0x32
	TypeRadioID          FrameType = 0x3A
)

const (
	// MaxFrameLen is the largest frame including ADDR and LEN.
	MaxFrameLen = 64
	MinLen      = 2
	MaxLen      = MaxFrameLen - 2

	NumChannels        = 16
	RcChannelsPayload  = 22
	LinkStatsPayload   = 10
	ChannelMask        = 0x07FF
	ChannelValueMin    = 0
	ChannelValueCenter = 992
	ChannelValueMax    = 1984
)

// Packet is one decoded frame.
type Packet interface {
	Address() Address
	Type() FrameType
}

// RcChannels carries sixteen 11-bit proportional channels.
type RcChannels struct {
	Addr     Address
	Channels [NumChannels]uint16
}

func (p RcChannels) Address() Address { return p.Addr }
func (p RcChannels) Type() FrameType  { return TypeRcChannelsPacked }

// LinkStatistics is the radio link quality report.
type LinkStatistics struct {
	Addr                Address
	UplinkRSSI1         uint8
	UplinkRSSI2         uint8
	UplinkLinkQuality   uint8
	UplinkSNR           int8
	ActiveAntenna       uint8
	RFMode              uint8
	UplinkTXPower       uint8
	DownlinkRSSI        uint8
	DownlinkLinkQuality uint8
	DownlinkSNR         int8
}

func (p LinkStatistics) Address() Address { return p.Addr }
func (p LinkStatistics) Type() FrameType  { return TypeLinkStatistics }

// Unknown is any CRC-valid frame this package does not decode further.
type Unknown struct {
	Addr      Address
	FrameType FrameType
	Payload   []byte
}

func (p Unknown) Address() Address { return p.Addr }
func (p Unknown) Type() FrameType  { return p.FrameType }
