package store

import (
	"database/sql"
	"encoding/json"

	"github.com/ayusman/handmirror/internal/kinematics"
	"github.com/ayusman/handmirror/internal/protocol"
)

// FrameRecord is one stored hand frame row.
type FrameRecord struct {
	ID        int64
	SessionID string
	Seq       int64
	Timestamp float64
	HandType  protocol.HandType
	Landmarks []protocol.Landmark
}

// AngleRecord is one stored derived-angle row.
type AngleRecord struct {
	ID        int64
	SessionID string
	Seq       int64
	Timestamp float64
	HandType  protocol.HandType
	Angles    kinematics.Angles
}

// RecordingRepository persists received frames and derived angles per
// session.
type RecordingRepository struct {
	db *sql.DB
}

// Recordings returns the recording repository for this store.
func (s *Store) Recordings() *RecordingRepository {
	return &RecordingRepository{db: s.db}
}

// AppendFrame stores every hand of one received multi-hand frame under the
// given session and sequence number, in a single transaction.
func (r *RecordingRepository) AppendFrame(sessionID string, seq int64, frame *protocol.MultiHandFrame) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO session_frames (session_id, seq, frame_timestamp, hand_type, landmarks)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range frame.Hands {
		hand := &frame.Hands[i]
		data, err := json.Marshal(hand.Landmarks)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(sessionID, seq, frame.Timestamp, string(hand.HandType), string(data)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// AppendAngles stores one derived angle vector.
func (r *RecordingRepository) AppendAngles(sessionID string, seq int64, timestamp float64, handType protocol.HandType, a kinematics.Angles) error {
	_, err := r.db.Exec(
		`INSERT INTO session_angles (session_id, seq, frame_timestamp, hand_type, thumb, index_finger, middle, ring, pinky, hand)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, seq, timestamp, string(handType),
		a.Thumb, a.Index, a.Middle, a.Ring, a.Pinky, a.Hand,
	)
	return err
}

// FramesBySession retrieves all recorded frames of a session in sequence
// order.
func (r *RecordingRepository) FramesBySession(sessionID string) ([]FrameRecord, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, seq, frame_timestamp, hand_type, landmarks
		 FROM session_frames
		 WHERE session_id = ?
		 ORDER BY seq, id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []FrameRecord
	for rows.Next() {
		var rec FrameRecord
		var handType, landmarks string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Seq, &rec.Timestamp, &handType, &landmarks); err != nil {
			return nil, err
		}
		rec.HandType = protocol.HandType(handType)
		if err := json.Unmarshal([]byte(landmarks), &rec.Landmarks); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// AnglesBySession retrieves all recorded angle vectors of a session in
// sequence order.
func (r *RecordingRepository) AnglesBySession(sessionID string) ([]AngleRecord, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, seq, frame_timestamp, hand_type, thumb, index_finger, middle, ring, pinky, hand
		 FROM session_angles
		 WHERE session_id = ?
		 ORDER BY seq, id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []AngleRecord
	for rows.Next() {
		var rec AngleRecord
		var handType string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Seq, &rec.Timestamp, &handType,
			&rec.Angles.Thumb, &rec.Angles.Index, &rec.Angles.Middle,
			&rec.Angles.Ring, &rec.Angles.Pinky, &rec.Angles.Hand); err != nil {
			return nil, err
		}
		rec.HandType = protocol.HandType(handType)
		records = append(records, rec)
	}

	return records, rows.Err()
}
