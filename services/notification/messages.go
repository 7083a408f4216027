package notification

import (
	"fmt"
	"strconv"

	"moveo/models"
)

func serviceName(serviceType string) string {
	if st, ok := models.LookupServiceType(serviceType); ok {
		return st.Name
	}
	return serviceType
}

func missionData(a *models.Attribution) map[string]string {
	return map[string]string{
		"attributionId":    a.ID,
		"serviceRequestId": a.ServiceRequestID,
		"serviceType":      a.ServiceType,
		"round":            strconv.Itoa(a.BroadcastCount),
		"role":             "provider",
	}
}

// MissionInvitation invites a provider to accept a mission. Rounds after the
// first are sent as re-assignment offers.
func MissionInvitation(a *models.Attribution, p models.ProviderWithDistance) models.Notification {
	data := missionData(a)
	data["distanceKm"] = strconv.FormatFloat(p.RoundedKm, 'f', 2, 64)
	data["expiresAt"] = a.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00")

	n := models.Notification{
		Type:  models.NotifyMissionInvitation,
		Title: fmt.Sprintf("New %s mission", serviceName(a.ServiceType)),
		Body:  fmt.Sprintf("A %s job is available %.2f km from you. First to accept gets it.", serviceName(a.ServiceType), p.RoundedKm),
		Data:  data,
	}
	if a.BroadcastCount > 1 {
		n.Type = models.NotifyMissionReassigned
		n.Title = fmt.Sprintf("%s mission available again", serviceName(a.ServiceType))
	}
	return n
}

func MissionConfirmed(a *models.Attribution) models.Notification {
	return models.Notification{
		Type:  models.NotifyMissionConfirmed,
		Title: "Mission confirmed",
		Body:  fmt.Sprintf("The %s mission is yours.", serviceName(a.ServiceType)),
		Data:  missionData(a),
	}
}

// MissionTaken tells the other invited providers that the round is over.
func MissionTaken(a *models.Attribution) models.Notification {
	return models.Notification{
		Type:  models.NotifyMissionTaken,
		Title: "Mission taken",
		Body:  fmt.Sprintf("Another professional accepted the %s mission.", serviceName(a.ServiceType)),
		Data:  missionData(a),
	}
}

func MissionCancelled(a *models.Attribution, reason string) models.Notification {
	data := missionData(a)
	if reason != "" {
		data["reason"] = reason
	}
	return models.Notification{
		Type:  models.NotifyMissionCancelled,
		Title: "Mission cancelled",
		Body:  fmt.Sprintf("The customer cancelled the %s mission.", serviceName(a.ServiceType)),
		Data:  data,
	}
}

func Blacklisted(reason string) models.Notification {
	return models.Notification{
		Type:  models.NotifyBlacklisted,
		Title: "Account restricted",
		Body:  fmt.Sprintf("You will not receive new missions: %s.", reason),
		Data:  map[string]string{"reason": reason, "role": "provider"},
	}
}
