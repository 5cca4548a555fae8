package mkv

// Standard Matroska/EBML element IDs used by the muxer (spec §4.5).
var (
	idEBMLHeader = []byte{0x1A, 0x45, 0xDF, 0xA3}

	idEBMLVersion        = []byte{0x42, 0x86}
	idEBMLReadVersion    = []byte{0x42, 0xF7}
	idEBMLMaxIDLength    = []byte{0x42, 0xF2}
	idEBMLMaxSizeLength  = []byte{0x42, 0xF3}
	idDocType            = []byte{0x42, 0x82}
	idDocTypeVersion     = []byte{0x42, 0x87}
	idDocTypeReadVersion = []byte{0x42, 0x85}

	idSegment = []byte{0x18, 0x53, 0x80, 0x67}

	idSeekHead    = []byte{0x11, 0x4D, 0x9B, 0x74}
	idSeek        = []byte{0x4D, 0xBB}
	idSeekID      = []byte{0x53, 0xAB}
	idSeekPos     = []byte{0x53, 0xAC}
	idInfo        = []byte{0x15, 0x49, 0xA9, 0x66}
	idTimestamp   = []byte{0x2A, 0xD7, 0xB1} // TimecodeScale/TimestampScale
	idMuxingApp   = []byte{0x4D, 0x80}
	idWritingApp  = []byte{0x57, 0x41}
	idTracks      = []byte{0x16, 0x54, 0xAE, 0x6B}
	idTrackEntry  = []byte{0xAE}
	idTrackNumber = []byte{0xD7}
	idTrackUID    = []byte{0x73, 0xC5}
	idTrackType   = []byte{0x83}
	idDefaultDur  = []byte{0x23, 0xE3, 0x83}
	idCodecID     = []byte{0x86}
	idCodecPriv   = []byte{0x63, 0xA2}
	idVideo       = []byte{0xE0}
	idPixelWidth  = []byte{0xB0}
	idPixelHeight = []byte{0xBA}

	idCluster           = []byte{0x1F, 0x43, 0xB6, 0x75}
	idClusterTimestamp  = []byte{0xE7}
	idSimpleBlock       = []byte{0xA3}
	idCues              = []byte{0x1C, 0x53, 0xBB, 0x6B}
	idCuePoint          = []byte{0xBB}
	idCueTime           = []byte{0xB3}
	idCueTrackPositions = []byte{0xB7}
	idCueTrack          = []byte{0xF7}
	idCueClusterPos     = []byte{0xF1}
	idCueRelativePos    = []byte{0xF0}
)
